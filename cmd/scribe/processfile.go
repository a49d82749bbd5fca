package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"scribe/internal/models"
)

// sourceSpec pairs one source with the model that should transcribe it.
type sourceSpec struct {
	source string
	model  string
}

// parseProcessFile reads a batch file. Each non-blank, non-comment line is a
// source optionally followed by a model override.
func parseProcessFile(path, defaultModel string) ([]sourceSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open process file: %w", err)
	}
	defer file.Close()

	var specs []sourceSpec
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		spec := sourceSpec{source: fields[0], model: defaultModel}
		if len(fields) > 1 {
			override := fields[1]
			if !models.IsKnown(override) {
				return nil, fmt.Errorf("process file line %d: unknown model %q", lineNo, override)
			}
			spec.model = override
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read process file: %w", err)
	}
	return specs, nil
}
