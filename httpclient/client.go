// Package httpclient provides the reusable outbound HTTP client for notifiers,
// with context management, timeouts, connection pooling, TLS verification
// control, bounded retry, and observability hooks.
package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loonghao/notify-bridge-go/errors"
)

const (
	// DefaultTimeout is applied to requests whose context has no deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of transport-level retries
	// after the initial attempt.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the pause between transport retries.
	DefaultRetryDelay = 1 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "notify-bridge-go/1.0"
)

// Config controls outbound HTTP behavior for one notifier instance.
// It is immutable once a Client is constructed from it and is safely shared
// by reference across all sends issued by that notifier.
type Config struct {
	// Timeout applies when the request context carries no deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// VerifyTLS controls server certificate verification. DefaultConfig
	// enables it; disable only for private endpoints with self-signed certs.
	VerifyTLS bool `mapstructure:"verify_tls"`

	// MaxRetries bounds transport-level retries after the first attempt.
	// Retries cover connection errors only, never HTTP status codes.
	MaxRetries int `mapstructure:"max_retries"`

	// RetryDelay is the constant pause between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// UserAgent is injected when the request does not set one.
	UserAgent string `mapstructure:"user_agent"`

	// Connection pool tuning. Zero values take the package defaults.
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		VerifyTLS:           true,
		MaxRetries:          DefaultMaxRetries,
		RetryDelay:          DefaultRetryDelay,
		UserAgent:           defaultUserAgent,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
}

// Validate rejects configurations the transport cannot honor.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errors.Newf("timeout must be >= 0, got %s", c.Timeout).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if c.MaxRetries < 0 {
		return errors.Newf("max_retries must be >= 0, got %d", c.MaxRetries).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if c.RetryDelay < 0 {
		return errors.Newf("retry_delay must be >= 0, got %s", c.RetryDelay).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// withDefaults returns a copy of c with zero values replaced by defaults.
// VerifyTLS is left as configured: false is a deliberate choice, not a zero
// value to paper over.
func (c *Config) withDefaults() Config {
	out := *c
	if out.Timeout == 0 {
		out.Timeout = DefaultTimeout
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = DefaultRetryDelay
	}
	if out.UserAgent == "" {
		out.UserAgent = defaultUserAgent
	}
	if out.MaxIdleConns == 0 {
		out.MaxIdleConns = defaultMaxIdleConns
	}
	if out.MaxIdleConnsPerHost == 0 {
		out.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if out.IdleConnTimeout == 0 {
		out.IdleConnTimeout = defaultIdleConnTimeout
	}
	return out
}

// Client wraps http.Client with context-deadline handling, bounded retry, and
// hooks for metrics or logging. Safe for concurrent use; the underlying
// transport supports concurrent outstanding requests.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
	userAgent      string

	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// New creates a Client from cfg. A nil cfg takes DefaultConfig. The caller's
// config is never mutated.
func New(cfg *Config) (*Client, error) {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		c = cfg.withDefaults()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
	if !c.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-out via Config.VerifyTLS
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			// No client-level timeout; deadlines are handled per request.
		},
		defaultTimeout: c.Timeout,
		maxRetries:     c.MaxRetries,
		retryDelay:     c.RetryDelay,
		userAgent:      c.UserAgent,
	}, nil
}

// Do executes req with deadline enforcement and bounded retry.
//
// Context handling: a context deadline is used as-is; without one the
// configured timeout applies to the whole attempt sequence. Cancellation
// stops the request and any pending retries immediately.
//
// Retries cover transport failures only. An HTTP response, whatever its
// status, is returned to the caller without retrying; interpreting status
// codes is the notifier's job. The response body must be closed by the
// caller when err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.Newf("nil request").Category(errors.CategoryConfiguration).Build()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	afterHook := c.afterResponse
	c.hookMu.RUnlock()

	var resp *http.Response
	var lastErr error
	attempt := 0
	op := func() error {
		// Rewind the body for retries. Bodyless requests need no rewind
		// (NewRequest leaves GetBody nil for them); requests built from
		// byte readers carry GetBody; anything else cannot be replayed
		// and is not retried.
		if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return backoff.Permanent(lastErr)
			}
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		attempt++

		if beforeHook != nil {
			beforeHook(req)
		}
		var err error
		resp, err = c.client.Do(req) //nolint:bodyclose // closed by the caller
		if afterHook != nil {
			afterHook(req, resp, err)
		}
		if err != nil {
			lastErr = err
		}
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, errors.Newf("request failed after %d attempt(s): %s", attempt, err).
			Category(errors.CategoryNotification).
			Context("url", req.URL.Redacted()).
			Build()
	}
	return resp, nil
}

// SetBeforeRequestHook installs a function called before each attempt.
// Safe to call concurrently with Do.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook installs a function called after each attempt.
// Safe to call concurrently with Do.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close releases idle connections in the pool. Safe to call more than once.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
