package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.ConfigDir) == "" {
		c.Paths.ConfigDir = defaultConfigDir
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}

	var err error
	if c.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.ConfigDir, err = expandPath(c.Paths.ConfigDir); err != nil {
		return fmt.Errorf("paths.config_dir: %w", err)
	}
	if c.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}

	if strings.TrimSpace(c.Downloader.Binary) == "" {
		c.Downloader.Binary = defaultDownloaderBinary
	}
	if c.Downloader.ProbeTimeout <= 0 {
		c.Downloader.ProbeTimeout = defaultProbeTimeout
	}
	if c.Downloader.SocketTimeout <= 0 {
		c.Downloader.SocketTimeout = defaultSocketTimeout
	}
	if c.Downloader.ProbeWorkers <= 0 {
		c.Downloader.ProbeWorkers = defaultProbeWorkers
	}
	if c.Downloader.ProbesPerSec <= 0 {
		c.Downloader.ProbesPerSec = defaultProbesPerSec
	}

	if strings.TrimSpace(c.Engine.Binary) == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if strings.TrimSpace(c.Engine.Device) == "" {
		c.Engine.Device = defaultDevice
	}
	if strings.TrimSpace(c.Engine.ComputeType) == "" {
		c.Engine.ComputeType = defaultComputeType
	}
	if strings.TrimSpace(c.Transcoder.Binary) == "" {
		c.Transcoder.Binary = defaultTranscoderBinary
	}
	if strings.TrimSpace(c.Subtitles.PreferredLanguage) == "" {
		c.Subtitles.PreferredLanguage = defaultPreferredLanguage
	}
	if c.MetaCache.MaxAge <= 0 {
		c.MetaCache.MaxAge = defaultMetaCacheMaxAge
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
