package config

const (
	defaultOutputDir           = "~/media/nassav"
	defaultLogDir              = "~/.local/share/nassav/logs"
	defaultAPIBind             = "127.0.0.1:7955"
	defaultToolBinary          = "m3u8-downloader"
	defaultWaitTimeout         = 7200
	defaultGracePeriod         = 5
	defaultArtifactWaitSeconds = 15
	defaultProgressIntervalMS  = 500
	defaultLogIntervalMS       = 200
	defaultMaxLogLines         = 3000
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Tool: Tool{
			Binary:              defaultToolBinary,
			WaitTimeout:         defaultWaitTimeout,
			GracePeriod:         defaultGracePeriod,
			ArtifactWaitSeconds: defaultArtifactWaitSeconds,
		},
		Workflow: Workflow{
			ProgressIntervalMillis: defaultProgressIntervalMS,
			LogIntervalMillis:      defaultLogIntervalMS,
			MaxLogLines:            defaultMaxLogLines,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
