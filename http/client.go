// Package http provides the HTTP client infrastructure used for OAuth and
// YouTube Data API traffic: a tuned transport with HTTP/2 support, a default
// user agent, request logging and transport error tagging.
package http

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"yucil/internal/logging"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// User agent for HTTP requests
	UserAgent string

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling and HTTP/2).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	// Default: 20
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle connection can remain open.
	// Default: 90 seconds
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Default: 10 seconds
	TLSHandshakeTimeout time.Duration

	// ReadIdleTimeout triggers an HTTP/2 health-check ping when no frame has
	// been received for this long. Zero disables health checks.
	// Default: 30 seconds
	ReadIdleTimeout time.Duration

	// PingTimeout closes an HTTP/2 connection whose health-check ping is not
	// answered in time.
	// Default: 15 seconds
	PingTimeout time.Duration

	// RootCAs overrides the trusted roots. Nil uses the system root store.
	RootCAs *x509.CertPool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		UserAgent: "yucil/1.0",
		Transport: DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ReadIdleTimeout:     30 * time.Second,
		PingTimeout:         15 * time.Second,
	}
}

// New creates an *http.Client with the given configuration.
//
// TLS verification uses the system root store unless Transport.RootCAs is
// set. HTTP/1.1 and HTTP/2 are both
// enabled; HTTP/2 is negotiated through ALPN.
func New(cfg *Config, logger *slog.Logger) (*http.Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: cfg.Transport.RootCAs},
		TLSHandshakeTimeout: cfg.Transport.TLSHandshakeTimeout,
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	h2.ReadIdleTimeout = cfg.Transport.ReadIdleTimeout
	h2.PingTimeout = cfg.Transport.PingTimeout

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &roundTripper{
			base:      transport,
			userAgent: cfg.UserAgent,
			logger:    logging.WithComponent(logger, "http"),
		},
	}, nil
}

// roundTripper sets the default user agent, logs each exchange and tags
// transport failures with ErrRequestFailed.
type roundTripper struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}

	start := time.Now()
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		rt.logger.Debug("http request failed",
			slog.String("method", req.Method),
			slog.String("host", req.URL.Host),
			slog.String("path", req.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return nil, &RequestError{Method: req.Method, Host: req.URL.Host, Err: err}
	}

	rt.logger.Debug("http request",
		slog.String("method", req.Method),
		slog.String("host", req.URL.Host),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("proto", resp.Proto),
		slog.Duration("elapsed", time.Since(start)))
	return resp, nil
}
