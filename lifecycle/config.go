package lifecycle

import (
	"fmt"
	"time"
)

// Config bounds handle lifetimes.
type Config struct {
	// Lifetime is how long a handle serves new calls. Defaults to 2m.
	Lifetime time.Duration `yaml:"lifetime" mapstructure:"lifetime"`
	// SweepInterval is the period of the background sweep. Defaults to 10s.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	// MaxHandles bounds live handles, active and expired. 0 is unlimited.
	MaxHandles int `yaml:"max_handles" mapstructure:"max_handles"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Lifetime <= 0 {
		c.Lifetime = 2 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxHandles < 0 {
		return fmt.Errorf("lifecycle: max_handles must not be negative")
	}
	return nil
}
