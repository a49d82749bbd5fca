// Package artifacts writes the companion files that accompany each finalized
// subtitle: an HTML redirect to the source and shell/batch launchers that
// play the source in mpv with the subtitle attached.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteCompanions emits the .htm, .sh, and .bat helpers next to srtPath.
// sourceURL is the canonical URL (or local path) the subtitle belongs to.
func WriteCompanions(srtPath, sourceURL string) error {
	base := strings.TrimSuffix(srtPath, filepath.Ext(srtPath))

	if err := writeRedirect(base+".htm", sourceURL); err != nil {
		return err
	}
	if err := writeShellLauncher(base+".sh", sourceURL, srtPath); err != nil {
		return err
	}
	if err := writeBatchLauncher(base+".bat", sourceURL, srtPath); err != nil {
		return err
	}
	return nil
}

func writeRedirect(path, url string) error {
	content := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="0; URL='%s'">
</head>
<body></body>
</html>
`, url)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write redirect helper: %w", err)
	}
	return nil
}

func writeShellLauncher(path, url, srtPath string) error {
	content := fmt.Sprintf("#!/bin/sh\nmpv %q --pause --input-ipc-server=/tmp/mpvsocket --sub-file=%q \"$@\"\n", url, srtPath)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return fmt.Errorf("write shell launcher: %w", err)
	}
	return nil
}

func writeBatchLauncher(path, url, srtPath string) error {
	content := fmt.Sprintf("mpv \"%s\" --pause --input-ipc-server=/tmp/mpvsocket --sub-file=\"%s\" %%*\r\n",
		url, WindowsPath(srtPath))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write batch launcher: %w", err)
	}
	return nil
}

// WindowsPath rewrites a Linux home path into the matching Windows profile
// path and flips separators.
func WindowsPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "/home/"); ok {
		path = `C:\Users\` + rest
	}
	return strings.ReplaceAll(path, "/", `\`)
}
