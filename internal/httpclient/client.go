package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/aleister1102/hostbackoff/internal/backoff"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// ErrNotModified is returned when content has not been modified (HTTP 304).
var ErrNotModified = NewError("content not modified")

// HTTPClient pairs a tuned net/http client with a backoff executor that
// retries throttled requests to the configured providers.
type HTTPClient struct {
	client     *http.Client
	config     HTTPClientConfig
	logger     zerolog.Logger
	executor   *backoff.Executor
	bufferPool sync.Pool
}

// NewHTTPClient creates a new HTTP client with the given configuration using net/http.
// A nil rules value uses backoff.DefaultRules.
func NewHTTPClient(config HTTPClientConfig, rules *backoff.Rules, logger zerolog.Logger, opts ...backoff.ExecutorOption) (*HTTPClient, error) {
	logger = logger.With().Str("component", "HTTPClient").Logger()

	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		} else {
			logger.Debug().Msg("HTTP/2 support enabled")
		}
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, WrapError(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy", proxyURL.Redacted()).Msg("HTTP client configured with proxy")
	}

	client := &http.Client{
		Transport: &headerTransport{
			base:      transport,
			userAgent: config.UserAgent,
			headers:   config.CustomHeaders,
		},
		Timeout: config.Timeout,
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if config.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		}
	}

	logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("insecure_skip_verify", config.InsecureSkipVerify).
		Bool("follow_redirects", config.FollowRedirects).
		Int("max_redirects", config.MaxRedirects).
		Bool("http2_enabled", config.EnableHTTP2).
		Msg("HTTP client created")

	return &HTTPClient{
		client:   client,
		config:   config,
		logger:   logger,
		executor: backoff.NewExecutor(client, rules, logger, opts...),
		bufferPool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 32*1024)
				return &b
			},
		},
	}, nil
}

// Client returns the underlying net/http client.
func (c *HTTPClient) Client() *http.Client {
	return c.client
}

// Executor returns the backoff executor bound to this client.
func (c *HTTPClient) Executor() *backoff.Executor {
	return c.executor
}

// Rules returns the backoff rules in effect.
func (c *HTTPClient) Rules() *backoff.Rules {
	return c.executor.Rules()
}

// Do performs a single HTTP request without backoff.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, WrapError(err, "HTTP request failed")
	}
	return resp, nil
}

// ExecuteWithBackoff performs req, waiting and retrying while the host's
// provider answers with a throttle signal.
func (c *HTTPClient) ExecuteWithBackoff(req *http.Request) (*http.Response, error) {
	return c.executor.ExecuteWithBackoff(req)
}

// NewRequest builds a request whose body can be replayed on every attempt.
func (c *HTTPClient) NewRequest(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, WrapError(err, "failed to create HTTP request")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	return req, nil
}

// FetchContentInput holds parameters for FetchContent.
type FetchContentInput struct {
	URL                  string
	PreviousETag         string
	PreviousLastModified string
	Context              context.Context
	BypassCache          bool // When true, skips conditional headers to force fresh content
}

// FetchContentResult holds results from FetchContent.
type FetchContentResult struct {
	Content        []byte
	ContentType    string
	ETag           string
	LastModified   string
	HTTPStatusCode int
}

// FetchContent fetches the content of a file from the given URL with support for conditional GETs.
// Throttle responses are retried through the backoff executor.
func (c *HTTPClient) FetchContent(input FetchContentInput) (*FetchContentResult, error) {
	headers := make(map[string]string)

	if !input.BypassCache {
		if input.PreviousETag != "" {
			headers["If-None-Match"] = input.PreviousETag
		}
		if input.PreviousLastModified != "" {
			headers["If-Modified-Since"] = input.PreviousLastModified
		}
	} else {
		headers["Cache-Control"] = "no-cache, no-store, must-revalidate"
		headers["Pragma"] = "no-cache"
		headers["Expires"] = "0"
	}

	req, err := c.NewRequest(input.Context, http.MethodGet, input.URL, nil, headers)
	if err != nil {
		return nil, err
	}

	resp, err := c.ExecuteWithBackoff(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.Redacted()).Msg("Failed to execute HTTP request")
		return nil, err
	}
	defer resp.Body.Close()

	result := &FetchContentResult{
		ETag:           resp.Header.Get("Etag"),
		LastModified:   resp.Header.Get("Last-Modified"),
		ContentType:    resp.Header.Get("Content-Type"),
		HTTPStatusCode: resp.StatusCode,
	}

	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("url", input.URL).Msg("Content not modified (304)")
		return result, ErrNotModified
	}

	body, truncated, err := c.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("url", input.URL).Int("status_code", resp.StatusCode).Msg("Received non-OK HTTP status")
		errorBody := body
		if len(errorBody) > 1024 {
			errorBody = errorBody[:1024]
		}
		result.Content = errorBody
		return result, NewHTTPErrorWithURL(resp.StatusCode, string(errorBody), input.URL)
	}

	if truncated {
		c.logger.Warn().
			Str("url", input.URL).
			Int("max_content_size", c.config.MaxContentSize).
			Msg("Content size exceeds limit, truncating")
	}
	result.Content = body

	c.logger.Debug().
		Str("url", input.URL).
		Int("content_size", len(result.Content)).
		Str("content_type", result.ContentType).
		Msg("Successfully fetched content")

	return result, nil
}

// readBody copies at most MaxContentSize bytes through a pooled buffer and
// reports whether the body was longer than that.
func (c *HTTPClient) readBody(body io.Reader) ([]byte, bool, error) {
	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buf := bytes.NewBuffer((*bufPtr)[:0])

	reader := body
	if c.config.MaxContentSize > 0 {
		reader = io.LimitReader(body, int64(c.config.MaxContentSize)+1)
	}
	if _, err := io.Copy(buf, reader); err != nil {
		return nil, false, WrapError(err, "failed to read response body")
	}

	data := buf.Bytes()
	truncated := false
	if c.config.MaxContentSize > 0 && len(data) > c.config.MaxContentSize {
		data = data[:c.config.MaxContentSize]
		truncated = true
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, truncated, nil
}

// headerTransport applies the configured default headers to every attempt.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" && len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	for key, value := range t.headers {
		if out.Header.Get(key) == "" {
			out.Header.Set(key, value)
		}
	}
	if t.userAgent != "" && out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(out)
}
