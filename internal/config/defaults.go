package config

const (
	defaultStagingDir   = "~/.local/share/mixdown/staging"
	defaultArtifactDir  = "~/.local/share/mixdown/artifacts"
	defaultLogDir       = "~/.local/share/mixdown/logs"
	defaultAPIBind      = "127.0.0.1:7246"
	defaultStoreBackend = "memory"
	defaultBitrateKbps  = 192
	defaultFormat       = "mp3"
	defaultYtdlpBinary  = "yt-dlp"
	defaultFFmpegBinary = "ffmpeg"
	defaultFetchTimeout = 120
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			ArtifactDir: defaultArtifactDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Convert: Convert{
			BitrateKbps:  defaultBitrateKbps,
			Format:       defaultFormat,
			YtdlpBinary:  defaultYtdlpBinary,
			FFmpegBinary: defaultFFmpegBinary,
			FetchTimeout: defaultFetchTimeout,
		},
		Workflow: Workflow{
			MaxActiveJobs: 0,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
