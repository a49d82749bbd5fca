// Package deps runs preflight checks over the external collaborators and
// filesystem locations a run depends on.
package deps

import (
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for a run. The transcoder is only
// required when resumed runs are possible, but it is cheap to check, so it
// always is.
func RunAll(cfg *config.Config) []Result {
	results := []Result{
		CheckBinary("Downloader", cfg.Downloader.Binary),
		CheckBinary("Engine", cfg.Engine.Binary),
		CheckBinary("Transcoder", cfg.Transcoder.Binary),
		CheckDirectoryAccess("Output directory", cfg.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.WorkDir),
	}
	return results
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckBinary verifies the executable resolves on PATH.
func CheckBinary(name, binary string) Result {
	if binary == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies the directory exists and is writable.
func CheckDirectoryAccess(name, dir string) Result {
	if dir == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: %v", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}
