package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"

	"golang.org/x/net/http2"
)

// Transport sends built requests. Implementations must be safe for
// concurrent use.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*Response, error)
	Close() error
}

// TransportFunc adapts a function to Transport. Close is a no-op.
type TransportFunc func(ctx context.Context, req *http.Request) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*Response, error) {
	return f(ctx, req)
}

func (TransportFunc) Close() error { return nil }

// Handle is the default Transport: one *http.Client with its own pool.
type Handle struct {
	client   *http.Client
	idle     func()
	maxBytes int64
	closed   atomic.Bool
}

// NewHandle builds a handle from cfg.
func NewHandle(cfg HandleConfig) (*Handle, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}

	h := &Handle{maxBytes: cfg.MaxResponseBytes}

	if cfg.HTTP2.Cleartext {
		t2 := &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				d := net.Dialer{Timeout: cfg.DialTimeout}
				return d.DialContext(ctx, network, addr)
			},
			ReadIdleTimeout: cfg.HTTP2.ReadIdleTimeout,
			PingTimeout:     cfg.HTTP2.PingTimeout,
		}
		h.client = &http.Client{Transport: t2}
		h.idle = t2.CloseIdleConnections
		return h, nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.IdleConnTimeout}).DialContext
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout
	transport.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	transport.DisableKeepAlives = cfg.DisableKeepAlives
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid proxy %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if cfg.HTTP2.Enabled {
		t2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
		t2.ReadIdleTimeout = cfg.HTTP2.ReadIdleTimeout
		t2.PingTimeout = cfg.HTTP2.PingTimeout
	}

	h.client = &http.Client{Transport: transport}
	h.idle = transport.CloseIdleConnections
	return h, nil
}

// Send performs req and reads the whole body. Non-2xx statuses are not
// errors here; the caller decides how to treat them.
func (h *Handle) Send(ctx context.Context, req *http.Request) (*Response, error) {
	if h.closed.Load() {
		return nil, NewConnectionError(fmt.Errorf("handle closed"))
	}
	if req.Context() != ctx {
		req = req.WithContext(ctx)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classifySendError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if h.maxBytes > 0 {
		body = io.LimitReader(resp.Body, h.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, classifySendError(ctx, fmt.Errorf("read response body: %w", err))
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		return nil, NewTooLargeError(resp.StatusCode, h.maxBytes)
	}
	return NewResponse(resp, data), nil
}

// Close releases idle connections. In-flight requests finish normally.
func (h *Handle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.idle()
	}
	return nil
}

// Closed reports whether Close was called.
func (h *Handle) Closed() bool { return h.closed.Load() }
