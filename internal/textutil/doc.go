// Package textutil provides filename sanitizing and stable hashing helpers
// shared across the pipeline.
package textutil
