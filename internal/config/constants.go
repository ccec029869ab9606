package config

const (
	// Backoff Defaults
	DefaultTwitchDomain        = "twitch.tv"
	DefaultGoogleDomain        = "google.com"
	DefaultYoutubeDomain       = "youtube.com"
	DefaultMaxBackoffAttempts  = 50
	DefaultGoogleBase          = 2
	DefaultGoogleCeilingSecs   = 3600
	DefaultOtherWaitSecs       = 5
	DefaultTwitchResetHeader   = "Ratelimit-Reset"
	DefaultMatchSubdomains     = false
	PolicyNameTwitch           = "twitch"
	PolicyNameGoogle           = "google"
	PolicyNameYoutube          = "youtube"
	PolicyNameOther            = "other"
	DefaultConfigPathEnv       = "HOSTBACKOFF_CONFIG_PATH"
	DefaultMaxConfigFileSizeMB = 10

	// HTTP Client Defaults
	DefaultHTTPUserAgent             = "hostbackoff/1.0"
	DefaultHTTPTimeoutSecs           = 30
	DefaultHTTPFollowRedirects       = true
	DefaultHTTPMaxRedirects          = 10
	DefaultHTTPMaxIdleConns          = 100
	DefaultHTTPMaxIdleConnsPerHost   = 10
	DefaultHTTPIdleConnTimeoutSecs   = 90
	DefaultHTTPTLSHandshakeTimeout   = 10
	DefaultHTTPDialTimeoutSecs       = 10
	DefaultHTTPKeepAliveSecs         = 30
	DefaultHTTPEnableHTTP2           = true
	DefaultHTTPMaxContentSizeBytes   = 10 * 1024 * 1024
	DefaultHTTPExpectContinueTimeout = 1

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// History Defaults
	DefaultHistoryEnabled    = false
	DefaultHistorySQLitePath = "database/history/backoff_history.db"
	DefaultHistoryListLimit  = 20
)
