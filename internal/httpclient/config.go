package httpclient

import (
	"time"

	"github.com/aleister1102/hostbackoff/internal/config"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout               time.Duration     // Request timeout, per attempt
	InsecureSkipVerify    bool              // Skip TLS verification
	FollowRedirects       bool              // Whether to follow redirects
	MaxRedirects          int               // Maximum number of redirects to follow
	Proxy                 string            // Proxy URL (HTTP/SOCKS)
	UserAgent             string            // User-Agent applied when the request has none
	CustomHeaders         map[string]string // Custom headers added to requests that lack them
	MaxIdleConns          int               // Maximum idle connections
	MaxIdleConnsPerHost   int               // Maximum idle connections per host
	MaxConnsPerHost       int               // Maximum connections per host
	IdleConnTimeout       time.Duration     // Idle connection timeout
	TLSHandshakeTimeout   time.Duration     // TLS handshake timeout
	ExpectContinueTimeout time.Duration     // Expect 100-continue timeout
	DialTimeout           time.Duration     // Connection dial timeout
	KeepAlive             time.Duration     // Keep-alive duration
	EnableHTTP2           bool              // Enable HTTP/2 support (default: true)
	MaxContentSize        int               // Maximum bytes FetchContent keeps (0 for no limit)
}

// DefaultHTTPClientConfig returns the default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return FromConfig(config.NewDefaultHTTPClientConfig())
}

// FromConfig converts the file configuration section into client configuration
func FromConfig(cfg config.HTTPClientConfig) HTTPClientConfig {
	headers := make(map[string]string, len(cfg.CustomHeaders))
	for k, v := range cfg.CustomHeaders {
		headers[k] = v
	}

	return HTTPClientConfig{
		Timeout:               seconds(cfg.TimeoutSecs),
		InsecureSkipVerify:    cfg.InsecureSkipVerify,
		FollowRedirects:       cfg.FollowRedirects,
		MaxRedirects:          cfg.MaxRedirects,
		Proxy:                 cfg.Proxy,
		UserAgent:             cfg.UserAgent,
		CustomHeaders:         headers,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       seconds(cfg.IdleConnTimeoutSecs),
		TLSHandshakeTimeout:   seconds(cfg.TLSHandshakeTimeoutSec),
		ExpectContinueTimeout: seconds(cfg.ExpectContinueSecs),
		DialTimeout:           seconds(cfg.DialTimeoutSecs),
		KeepAlive:             seconds(cfg.KeepAliveSecs),
		EnableHTTP2:           cfg.EnableHTTP2,
		MaxContentSize:        cfg.MaxContentSize,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
