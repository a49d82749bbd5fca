package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify failures across collaborator boundaries. Every
// error surfaced by an adapter or pipeline component wraps exactly one of
// these markers so callers can pick a recovery policy without string matching.
var (
	ErrInputInvalid      = errors.New("invalid input")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrRateLimited       = errors.New("remote rate limited")
	ErrAuthRequired      = errors.New("authentication required")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrPartialOutput     = errors.New("partial output")
	ErrStateCorruption   = errors.New("state corruption")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRemoteUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// rateLimitTokens are textual indicators of throttling in collaborator output.
var rateLimitTokens = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"video unavailable",
	"unable to download",
}

// authTokens indicate age gates or region locks that need cookie-jar auth.
var authTokens = []string{
	"sign in to confirm your age",
	"age-restricted",
	"this video is only available",
	"login required",
	"private video",
}

// gpuTokens indicate GPU-side decode failures eligible for CPU fallback.
var gpuTokens = []string{
	"cuda",
	"cublas",
	"cudnn",
	"out of memory",
	"hip error",
}

// ClassifyRemote maps collaborator output onto a sentinel based on recognized
// textual indicators. Defaults to ErrRemoteUnavailable so call sites retry
// with ordinary backoff.
func ClassifyRemote(output string) error {
	lowered := strings.ToLower(output)
	for _, token := range rateLimitTokens {
		if strings.Contains(lowered, token) {
			return ErrRateLimited
		}
	}
	for _, token := range authTokens {
		if strings.Contains(lowered, token) {
			return ErrAuthRequired
		}
	}
	return ErrRemoteUnavailable
}

// IsGPUFailure reports whether the error text points at a GPU-side failure
// that warrants retrying the engine on CPU.
func IsGPUFailure(err error) bool {
	if err == nil {
		return false
	}
	lowered := strings.ToLower(err.Error())
	for _, token := range gpuTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the caller may retry the operation within its
// own budget. Input and state errors are never retryable.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrRemoteUnavailable), errors.Is(err, ErrRateLimited):
		return true
	default:
		return false
	}
}
