package deps_test

import (
	"path/filepath"
	"testing"

	"scribe/internal/deps"
)

func TestCheckBinary(t *testing.T) {
	if result := deps.CheckBinary("Shell", "sh"); !result.Passed {
		t.Errorf("sh should resolve: %+v", result)
	}
	if result := deps.CheckBinary("Missing", "definitely-not-a-real-binary"); result.Passed {
		t.Errorf("missing binary should fail: %+v", result)
	}
	if result := deps.CheckBinary("Empty", ""); result.Passed {
		t.Error("empty binary should fail")
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := deps.CheckDirectoryAccess("Output", dir); !result.Passed {
		t.Errorf("writable dir should pass: %+v", result)
	}
	if result := deps.CheckDirectoryAccess("Output", filepath.Join(dir, "absent")); result.Passed {
		t.Error("missing dir should fail")
	}
}

func TestAllPassed(t *testing.T) {
	passed := []deps.Result{{Passed: true}, {Passed: true}}
	if !deps.AllPassed(passed) {
		t.Error("expected all passed")
	}
	if deps.AllPassed(append(passed, deps.Result{})) {
		t.Error("expected failure with one failed check")
	}
}
