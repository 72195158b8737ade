package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix is the environment variable prefix used when none is set.
const DefaultEnvPrefix = "APIKIT"

// FileSystem abstracts the file operations the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real file system.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Defaulter is implemented by config structs that fill in zero values.
type Defaulter interface {
	ApplyDefaults()
}

// Validator is implemented by config structs that check themselves.
type Validator interface {
	Validate() error
}

type loaderConfig struct {
	fs         FileSystem
	configFile string
	envFile    string
	envPrefix  string
	defaults   map[string]any
}

// Option configures Load.
type Option func(*loaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(lc *loaderConfig) { lc.fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithEnvPrefix overrides DefaultEnvPrefix. An empty prefix binds bare keys.
func WithEnvPrefix(prefix string) Option {
	return func(lc *loaderConfig) { lc.envPrefix = prefix }
}

// WithDefault registers a default value for a dotted key.
func WithDefault(key string, value any) Option {
	return func(lc *loaderConfig) { lc.defaults[key] = value }
}

// Load reads configuration for name into cfg. When cfg implements
// Defaulter and Validator they are applied after unmarshalling.
func Load(name string, cfg any, opts ...Option) error {
	lc := loaderConfig{fs: OSFileSystem{}, envPrefix: DefaultEnvPrefix, defaults: map[string]any{}}
	for _, opt := range opts {
		opt(&lc)
	}

	configFile := lc.configFile
	if configFile == "" {
		configFile = findFirst(lc.fs, configCandidates(name))
	}
	envFile := lc.envFile
	if envFile == "" {
		envFile = findFirst(lc.fs, []string{".env." + name, ".env"})
	}

	// .env first so its values are visible to the environment binding below.
	if envFile != "" && lc.fs.Exists(envFile) {
		if err := lc.fs.LoadEnv(envFile); err != nil {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	for k, val := range lc.defaults {
		v.SetDefault(k, val)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}
	if lc.envPrefix != "" {
		v.SetEnvPrefix(lc.envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", name, err)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

func configCandidates(name string) []string {
	return []string{
		fmt.Sprintf("./%s.yml", name),
		fmt.Sprintf("./%s.yaml", name),
		fmt.Sprintf("./config/%s.yml", name),
		fmt.Sprintf("./config/%s.yaml", name),
		"./config.yml",
		"./config.yaml",
	}
}

func findFirst(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}
