package config

const (
	defaultOutputDir        = "~/notedump-output"
	defaultLogDir           = "~/.local/share/notedump/logs"
	defaultTokenPath        = "~/.local/share/notedump/token.json"
	defaultGraphBaseURL     = "https://graph.microsoft.com/v1.0/me/onenote"
	defaultAuthURL          = "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"
	defaultTokenURL         = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	defaultRedirectURL      = "http://localhost:8000/auth"
	defaultRequestTimeout   = 120
	defaultConcurrency      = 4
	defaultMaxRetries       = 5
	defaultMaxRateLimitWait = 300
	defaultQueueDepthFactor = 2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			TokenPath: defaultTokenPath,
		},
		Graph: Graph{
			BaseURL:        defaultGraphBaseURL,
			AuthURL:        defaultAuthURL,
			TokenURL:       defaultTokenURL,
			RedirectURL:    defaultRedirectURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Export: Export{
			Concurrency:      defaultConcurrency,
			MaxRetries:       defaultMaxRetries,
			MaxRateLimitWait: defaultMaxRateLimitWait,
			QueueDepthFactor: defaultQueueDepthFactor,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
