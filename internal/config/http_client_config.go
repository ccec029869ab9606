package config

// HTTPClientConfig holds configuration for the underlying HTTP transport
type HTTPClientConfig struct {
	UserAgent              string            `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	TimeoutSecs            int               `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
	InsecureSkipVerify     bool              `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	FollowRedirects        bool              `json:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects           int               `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty" validate:"omitempty,min=0"`
	Proxy                  string            `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
	CustomHeaders          map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty"`
	MaxIdleConns           int               `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty" validate:"omitempty,min=0"`
	MaxIdleConnsPerHost    int               `json:"max_idle_conns_per_host,omitempty" yaml:"max_idle_conns_per_host,omitempty" validate:"omitempty,min=0"`
	MaxConnsPerHost        int               `json:"max_conns_per_host,omitempty" yaml:"max_conns_per_host,omitempty" validate:"omitempty,min=0"`
	IdleConnTimeoutSecs    int               `json:"idle_conn_timeout_secs,omitempty" yaml:"idle_conn_timeout_secs,omitempty" validate:"omitempty,min=0"`
	TLSHandshakeTimeoutSec int               `json:"tls_handshake_timeout_secs,omitempty" yaml:"tls_handshake_timeout_secs,omitempty" validate:"omitempty,min=0"`
	ExpectContinueSecs     int               `json:"expect_continue_timeout_secs,omitempty" yaml:"expect_continue_timeout_secs,omitempty" validate:"omitempty,min=0"`
	DialTimeoutSecs        int               `json:"dial_timeout_secs,omitempty" yaml:"dial_timeout_secs,omitempty" validate:"omitempty,min=0"`
	KeepAliveSecs          int               `json:"keep_alive_secs,omitempty" yaml:"keep_alive_secs,omitempty" validate:"omitempty,min=0"`
	EnableHTTP2            bool              `json:"enable_http2" yaml:"enable_http2"`
	MaxContentSize         int               `json:"max_content_size,omitempty" yaml:"max_content_size,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultHTTPClientConfig creates default HTTP client configuration
func NewDefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		UserAgent:              DefaultHTTPUserAgent,
		TimeoutSecs:            DefaultHTTPTimeoutSecs,
		InsecureSkipVerify:     false,
		FollowRedirects:        DefaultHTTPFollowRedirects,
		MaxRedirects:           DefaultHTTPMaxRedirects,
		CustomHeaders:          make(map[string]string),
		MaxIdleConns:           DefaultHTTPMaxIdleConns,
		MaxIdleConnsPerHost:    DefaultHTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:        0, // 0 means no limit
		IdleConnTimeoutSecs:    DefaultHTTPIdleConnTimeoutSecs,
		TLSHandshakeTimeoutSec: DefaultHTTPTLSHandshakeTimeout,
		ExpectContinueSecs:     DefaultHTTPExpectContinueTimeout,
		DialTimeoutSecs:        DefaultHTTPDialTimeoutSecs,
		KeepAliveSecs:          DefaultHTTPKeepAliveSecs,
		EnableHTTP2:            DefaultHTTPEnableHTTP2,
		MaxContentSize:         DefaultHTTPMaxContentSizeBytes,
	}
}
