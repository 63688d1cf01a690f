package config

const (
	defaultConfigPath            = "~/.config/mediafetch/config.toml"
	defaultOutputDir             = "~/Downloads/mediafetch"
	defaultLogDir                = "~/.local/share/mediafetch/logs"
	defaultHistoryDB             = "~/.local/share/mediafetch/history.db"
	defaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultAcceptLanguage        = "en-US,en;q=0.9"
	defaultRequestTimeoutSeconds = 30
	defaultMaxAttempts           = 3
	defaultRetryBaseDelayMS      = 1000
	defaultRetryMaxDelayMS       = 10000
	defaultVideoContainer        = "mp4"
	defaultMuxedContainer        = "mp4"
	defaultAudioExtension        = "mp3"
	defaultWorkers               = 2
	maxWorkers                   = 16
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir(),
			HistoryDB: defaultHistoryDB,
		},
		Network: Network{
			UserAgent:             defaultUserAgent,
			AcceptLanguage:        defaultAcceptLanguage,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			MaxAttempts:           defaultMaxAttempts,
			RetryBaseDelayMS:      defaultRetryBaseDelayMS,
			RetryMaxDelayMS:       defaultRetryMaxDelayMS,
		},
		Selection: Selection{
			VideoContainer: defaultVideoContainer,
		},
		Output: Output{
			MuxedContainer: defaultMuxedContainer,
			AudioExtension: defaultAudioExtension,
		},
		Tools: Tools{
			VerifyStreams: true,
		},
		Batch: Batch{
			Workers: defaultWorkers,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
