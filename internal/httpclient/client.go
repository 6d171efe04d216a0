// Package httpclient provides a centralized HTTP client factory with preset configurations.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Preset timeout durations for common use cases.
const (
	// DefaultTimeout is the standard timeout for listing and inventory requests (30s).
	DefaultTimeout = 30 * time.Second

	// NoTimeout disables the overall request timeout. Range downloads of large
	// messages rely on the connect timeout and the context instead.
	NoTimeout time.Duration = 0
)

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "gribfetch/1.0"

// Options configures an HTTP client.
type Options struct {
	Timeout         time.Duration
	ConnectTimeout  time.Duration
	FollowRedirects bool
	UserAgent       string
	Transport       *http.Transport
}

// Option is a functional option for configuring HTTP clients.
type Option func(*Options)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithConnectTimeout bounds the time spent dialing the server. 0 means no limit.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithFollowRedirects controls whether 3xx responses are followed. When
// disabled the redirect response itself is returned to the caller.
func WithFollowRedirects(follow bool) Option {
	return func(o *Options) {
		o.FollowRedirects = follow
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		o.UserAgent = ua
	}
}

// WithTransport sets a custom transport. The connect timeout is not applied
// to custom transports.
func WithTransport(t *http.Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}

// New creates a new HTTP client with the given options.
// If no timeout is specified, DefaultTimeout (30s) is used and redirects are followed.
func New(opts ...Option) *http.Client {
	cfg := &Options{
		Timeout:         DefaultTimeout,
		FollowRedirects: true,
		UserAgent:       DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
		if cfg.ConnectTimeout > 0 {
			transport.DialContext = (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext
			transport.TLSHandshakeTimeout = cfg.ConnectTimeout
		}
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: transport, userAgent: cfg.UserAgent},
	}

	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client
}

// NewDefault creates a new HTTP client with the default timeout (30s).
func NewDefault() *http.Client {
	return New()
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
