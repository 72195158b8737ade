package apikit

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/cache"
	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/lifecycle"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/resilience"
)

// Config configures a Factory.
type Config struct {
	// Name identifies the factory in logs and health reports.
	Name string `yaml:"name" mapstructure:"name"`
	// BaseURL is the host of contracts that declare none.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout is the default per-call timeout, 30s when unset. A negative
	// value disables it, leaving calls bounded by their context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// EagerTemplates builds every call template when a client is created
	// instead of on first call, surfacing declaration errors early.
	EagerTemplates bool `yaml:"eager_templates" mapstructure:"eager_templates"`

	Handles    lifecycle.Config        `yaml:"handles" mapstructure:"handles"`
	Transport  httpclient.HandleConfig `yaml:"transport" mapstructure:"transport"`
	Cache      cache.Config            `yaml:"cache" mapstructure:"cache"`
	Auth       AuthConfig              `yaml:"auth" mapstructure:"auth"`
	Resilience ResilienceConfig        `yaml:"resilience" mapstructure:"resilience"`
	Telemetry  TelemetryConfig         `yaml:"telemetry" mapstructure:"telemetry"`
	Logging    logger.Config           `yaml:"logging" mapstructure:"logging"`
}

// AuthConfig adds credentials to every call.
type AuthConfig struct {
	// Type is none, bearer, basic or api_key. Ignored when JWT is set.
	Type     string `yaml:"type" mapstructure:"type"`
	Token    string `yaml:"token" mapstructure:"token"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Key      string `yaml:"key" mapstructure:"key"`
	// In is header or query for api_key.
	In   string `yaml:"in" mapstructure:"in"`
	Name string `yaml:"name" mapstructure:"name"`
	// JWT signs a short-lived service token per call.
	JWT *auth.JWTConfig `yaml:"jwt" mapstructure:"jwt"`
}

// ResilienceConfig guards every send. Nil members are off.
type ResilienceConfig struct {
	Breaker   *resilience.CircuitBreakerConfig `yaml:"breaker" mapstructure:"breaker"`
	Bulkhead  *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
	RateLimit *resilience.RateLimiterConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "apikit"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	c.Handles.ApplyDefaults()
	c.Transport.ApplyDefaults()
	c.Logging.ApplyDefaults()
	if c.Auth.JWT != nil {
		c.Auth.JWT.ApplyDefaults()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("base_url must be an absolute URL (got: %q)", c.BaseURL)
		}
	}
	if err := c.Handles.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if _, err := c.Auth.static(); err != nil {
		return err
	}
	if c.Auth.JWT != nil {
		if err := c.Auth.JWT.Validate(); err != nil {
			return fmt.Errorf("auth.jwt: %w", err)
		}
	}
	return nil
}

// static converts the header-based settings. A nil result means none.
func (a AuthConfig) static() (*httpclient.AuthConfig, error) {
	switch strings.ToLower(a.Type) {
	case "", "none":
		return nil, nil
	case "bearer":
		return httpclient.BearerAuth(a.Token), nil
	case "basic":
		return httpclient.BasicAuth(a.Username, a.Password), nil
	case "api_key", "apikey":
		ac := httpclient.APIKeyAuth(a.Key)
		if a.In == "query" {
			ac = httpclient.APIKeyAuthQuery(a.Key, or(a.Name, "api_key"))
		} else if a.Name != "" {
			ac.Name = a.Name
		}
		return ac, nil
	}
	return nil, fmt.Errorf("auth.type must be one of none, bearer, basic, api_key (got: %s)", a.Type)
}

func (r ResilienceConfig) policy(name string) *resilience.Policy {
	p := &resilience.Policy{}
	if r.Breaker != nil {
		cfg := *r.Breaker
		if cfg.Name == "" {
			cfg.Name = name
		}
		p.Breaker = resilience.NewCircuitBreaker(cfg)
	}
	if r.Bulkhead != nil {
		p.Bulkhead = resilience.NewBulkhead(*r.Bulkhead)
	}
	if r.RateLimit != nil {
		p.Limiter = resilience.NewRateLimiter(*r.RateLimit)
	}
	if p.Empty() {
		return nil
	}
	return p
}

// LoadConfig reads the configuration named name from files and APIKIT_
// environment variables.
func LoadConfig(name string, opts ...config.Option) (Config, error) {
	var cfg Config
	if err := config.Load(name, &cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
