package config

// BackoffConfig defines the host-aware backoff policy tables.
// Policy names are "twitch", "google", "youtube" and "other".
type BackoffConfig struct {
	// Exact host name -> policy name
	Hosts map[string]string `json:"hosts,omitempty" yaml:"hosts,omitempty" validate:"omitempty,dive,keys,required,endkeys,hostpolicy"`
	// Policy name -> maximum retry attempts before giving up
	MaxAttempts map[string]int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"omitempty,dive,keys,hostpolicy,endkeys,min=1"`
	// Base of the exponential backoff used for google/youtube (seconds = base^attempt)
	GoogleBase int `json:"google_base,omitempty" yaml:"google_base,omitempty" validate:"omitempty,min=2,max=60"`
	// Ceiling of the exponential backoff in seconds
	GoogleCeilingSecs int `json:"google_ceiling_secs,omitempty" yaml:"google_ceiling_secs,omitempty" validate:"omitempty,min=1,max=86400"`
	// Fixed wait for hosts without a dedicated policy
	OtherWaitSecs int `json:"other_wait_secs,omitempty" yaml:"other_wait_secs,omitempty" validate:"omitempty,min=1,max=3600"`
	// Header carrying the Unix reset timestamp on twitch throttle responses
	TwitchResetHeader string `json:"twitch_reset_header,omitempty" yaml:"twitch_reset_header,omitempty"`
	// Also match subdomains of configured hosts (api.twitch.tv -> twitch.tv)
	MatchSubdomains bool `json:"match_subdomains" yaml:"match_subdomains"`
}

// NewDefaultBackoffConfig creates default backoff configuration
func NewDefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Hosts: map[string]string{
			DefaultTwitchDomain:  PolicyNameTwitch,
			DefaultGoogleDomain:  PolicyNameGoogle,
			DefaultYoutubeDomain: PolicyNameYoutube,
		},
		MaxAttempts: map[string]int{
			PolicyNameTwitch:  DefaultMaxBackoffAttempts,
			PolicyNameGoogle:  DefaultMaxBackoffAttempts,
			PolicyNameYoutube: DefaultMaxBackoffAttempts,
			PolicyNameOther:   DefaultMaxBackoffAttempts,
		},
		GoogleBase:        DefaultGoogleBase,
		GoogleCeilingSecs: DefaultGoogleCeilingSecs,
		OtherWaitSecs:     DefaultOtherWaitSecs,
		TwitchResetHeader: DefaultTwitchResetHeader,
		MatchSubdomains:   DefaultMatchSubdomains,
	}
}

// IsPolicyName reports whether name is one of the recognised policy names.
func IsPolicyName(name string) bool {
	switch name {
	case PolicyNameTwitch, PolicyNameGoogle, PolicyNameYoutube, PolicyNameOther:
		return true
	default:
		return false
	}
}
