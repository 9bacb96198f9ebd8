package config

import (
	"fmt"
	"sort"
)

// profiles adjust DefaultConfig for each deployment environment.
var profiles = map[string]func(*Config){
	"development": func(c *Config) {
		c.Environment = EnvDevelopment
		c.Logging.Level = "debug"
		c.Logging.Format = "text"
		c.Storage.Adapter = "file"
	},
	"testing": func(c *Config) {
		c.Environment = EnvTesting
		c.Logging.Level = "warn"
		c.Logging.Format = "text"
		c.Storage.Adapter = "memory"
		c.Engine.RebuildLeaderboard = false
	},
	"staging": func(c *Config) {
		c.Environment = EnvStaging
		c.Storage.Adapter = "redis"
		c.Engine.Dispatch = "async"
		c.Metrics.Enabled = true
	},
	"production": func(c *Config) {
		c.Environment = EnvProduction
		c.Storage.Adapter = "redis"
		c.Engine.Dispatch = "async"
		c.Metrics.Enabled = true
		c.Security.EnableRateLimit = true
		c.Server.CORSOrigins = nil
	},
}

// Profiles lists the known profile names.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func profileConfig(name string) (*Config, error) {
	apply, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %v)", name, Profiles())
	}
	cfg := DefaultConfig()
	cfg.Profile = name
	apply(cfg)
	return cfg, nil
}

// LoadProfile returns the named profile with environment overrides and
// secrets applied.
func LoadProfile(name string) (*Config, error) {
	cfg, err := profileConfig(name)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}
