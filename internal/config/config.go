package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	ConfigDir string `toml:"config_dir"`
	WorkDir   string `toml:"work_dir"`
}

// Downloader contains configuration for the yt-dlp collaborator.
type Downloader struct {
	Binary         string  `toml:"binary"`
	CookiesBrowser string  `toml:"cookies_browser"`
	ProbeTimeout   int     `toml:"probe_timeout"`
	SocketTimeout  int     `toml:"socket_timeout"`
	ProbeWorkers   int     `toml:"probe_workers"`
	ProbesPerSec   float64 `toml:"probes_per_sec"`
}

// Engine contains configuration for the speech-to-text engine runner.
type Engine struct {
	Binary        string `toml:"binary"`
	Device        string `toml:"device"`
	ComputeType   string `toml:"compute_type"`
	AutoDowngrade bool   `toml:"auto_downgrade"`
}

// Transcoder contains configuration for the ffmpeg collaborator.
type Transcoder struct {
	Binary string `toml:"binary"`
}

// Subtitles contains subtitle retrieval and language preferences.
type Subtitles struct {
	PreferredLanguage string `toml:"preferred_language"`
	UseExisting       bool   `toml:"use_existing"`
}

// History contains configuration for the processed-history predicate.
type History struct {
	CrossTier bool `toml:"cross_tier"`
}

// MetaCache contains configuration for the persistent probe-metadata cache.
type MetaCache struct {
	Enabled bool `toml:"enabled"`
	MaxAge  int  `toml:"max_age_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Downloader Downloader `toml:"downloader"`
	Engine     Engine     `toml:"engine"`
	Transcoder Transcoder `toml:"transcoder"`
	Subtitles  Subtitles  `toml:"subtitles"`
	History    History    `toml:"history"`
	MetaCache  MetaCache  `toml:"metacache"`
	Logging    Logging    `toml:"logging"`

	// Set during normalize; mirror of Paths with expansion applied.
	OutputDir string `toml:"-"`
	ConfigDir string `toml:"-"`
	WorkDir   string `toml:"-"`
}

// DefaultConfigPath returns the expanded path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file yields
// defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the output, config, and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.ConfigDir, c.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the processed-history file location at the output root.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.OutputDir, "history.txt")
}

// JobStorePath returns the job store document location.
func (c *Config) JobStorePath() string {
	return filepath.Join(c.ConfigDir, "jobs.json")
}

// MetaCachePath returns the probe-metadata cache database location.
func (c *Config) MetaCachePath() string {
	return filepath.Join(c.ConfigDir, "metacache.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
