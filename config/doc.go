// Package config loads client configuration from a YAML file, a .env file
// and the process environment, in that order of precedence (environment
// wins).
//
//	var cfg apikit.Config
//	if err := config.Load("billing", &cfg, config.WithConfigFile("billing.yml")); err != nil {
//	    return err
//	}
//
// Environment keys use the APIKIT_ prefix with "_" for nesting, so
// APIKIT_HANDLES_LIFETIME overrides handles.lifetime.
package config
