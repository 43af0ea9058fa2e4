package config

const (
	defaultBaseURL          = "http://127.0.0.1:5000"
	defaultLoginPath        = "/api/users/login"
	defaultChannelPath      = "/ws"
	defaultRequestTimeout   = 15
	defaultMaxAttempts      = 5
	defaultBaseDelayMS      = 500
	defaultBackoffFactor    = 2.0
	defaultHandshakeTimeout = 10
	defaultReadLimit        = 1 << 20
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultDataDir          = "~/.local/share/podwatch"
	defaultLogDir           = "~/.local/share/podwatch/logs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			BaseURL:        defaultBaseURL,
			LoginPath:      defaultLoginPath,
			ChannelPath:    defaultChannelPath,
			RequestTimeout: defaultRequestTimeout,
		},
		Channel: Channel{
			MaxAttempts:      defaultMaxAttempts,
			BaseDelayMS:      defaultBaseDelayMS,
			BackoffFactor:    defaultBackoffFactor,
			HandshakeTimeout: defaultHandshakeTimeout,
			ReadLimit:        defaultReadLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Conversion:     true,
			Podcast:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
	}
}
