package config

const (
	defaultOutputDir         = "~/Documents/scribe"
	defaultConfigDir         = "~/.config/scribe"
	defaultWorkDir           = "~/.cache/scribe"
	defaultDownloaderBinary  = "yt-dlp"
	defaultEngineBinary      = "whisper-stream"
	defaultTranscoderBinary  = "ffmpeg"
	defaultProbeTimeout      = 10
	defaultSocketTimeout     = 30
	defaultProbeWorkers      = 5
	defaultProbesPerSec      = 2.0
	defaultDevice            = "cpu"
	defaultComputeType       = "int8"
	defaultPreferredLanguage = "en"
	defaultMetaCacheMaxAge   = 30
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			ConfigDir: defaultConfigDir,
			WorkDir:   defaultWorkDir,
		},
		Downloader: Downloader{
			Binary:        defaultDownloaderBinary,
			ProbeTimeout:  defaultProbeTimeout,
			SocketTimeout: defaultSocketTimeout,
			ProbeWorkers:  defaultProbeWorkers,
			ProbesPerSec:  defaultProbesPerSec,
		},
		Engine: Engine{
			Binary:        defaultEngineBinary,
			Device:        defaultDevice,
			ComputeType:   defaultComputeType,
			AutoDowngrade: true,
		},
		Transcoder: Transcoder{
			Binary: defaultTranscoderBinary,
		},
		Subtitles: Subtitles{
			PreferredLanguage: defaultPreferredLanguage,
			UseExisting:       true,
		},
		MetaCache: MetaCache{
			Enabled: true,
			MaxAge:  defaultMetaCacheMaxAge,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
