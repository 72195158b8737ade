package httpclient

import (
	"fmt"
	"time"
)

// HandleConfig configures the connection pool behind one Handle.
type HandleConfig struct {
	// MaxConnsPerHost bounds concurrent connections per host. 0 is unlimited.
	MaxConnsPerHost int `yaml:"max_conns_per_host" mapstructure:"max_conns_per_host"`
	// MaxIdleConnsPerHost defaults to 16.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`
	// IdleConnTimeout defaults to 90s.
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`
	// DialTimeout defaults to 10s.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	// TLSHandshakeTimeout defaults to 10s.
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout"`
	// ResponseHeaderTimeout is 0 (per-call timeouts apply) unless set.
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" mapstructure:"response_header_timeout"`
	// MaxResponseBytes fails responses with longer bodies. 0 is unlimited.
	MaxResponseBytes int64 `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
	// Proxy is an explicit proxy URL. Empty uses the environment.
	Proxy string `yaml:"proxy" mapstructure:"proxy"`
	// DisableKeepAlives turns off connection reuse.
	DisableKeepAlives bool `yaml:"disable_keep_alives" mapstructure:"disable_keep_alives"`

	TLS   *TLSConfig  `yaml:"tls" mapstructure:"tls"`
	HTTP2 HTTP2Config `yaml:"http2" mapstructure:"http2"`
}

// HTTP2Config tunes HTTP/2.
type HTTP2Config struct {
	// Enabled configures the transport through golang.org/x/net/http2 so the
	// health-check settings below apply. net/http negotiates h2 over TLS
	// even when this is false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Cleartext speaks h2c with prior knowledge. Only for http:// hosts.
	Cleartext bool `yaml:"cleartext" mapstructure:"cleartext"`
	// ReadIdleTimeout sends a ping after this much read silence. 0 disables.
	ReadIdleTimeout time.Duration `yaml:"read_idle_timeout" mapstructure:"read_idle_timeout"`
	// PingTimeout closes the connection when a ping gets no answer. Defaults to 15s.
	PingTimeout time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *HandleConfig) ApplyDefaults() {
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 16
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTP2.PingTimeout <= 0 {
		c.HTTP2.PingTimeout = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *HandleConfig) Validate() error {
	if c.MaxConnsPerHost < 0 {
		return fmt.Errorf("httpclient: max_conns_per_host must not be negative")
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("httpclient: max_response_bytes must not be negative")
	}
	return c.TLS.Validate()
}
