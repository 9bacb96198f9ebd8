package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

func joinErrs(errs []string) error {
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func oneOf(field, value string, valid []string) []string {
	if slices.Contains(valid, value) {
		return nil
	}
	return []string{fmt.Sprintf("%s must be one of: %s", field, strings.Join(valid, ", "))}
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, "read_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}
	if s.IdleTimeout <= 0 {
		errs = append(errs, "idle_timeout must be positive")
	}
	if s.ReadHeaderTimeout <= 0 {
		errs = append(errs, "read_header_timeout must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}

	return joinErrs(errs)
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	errs := oneOf("adapter", s.Adapter, []string{"memory", "redis", "sql", "file"})

	// Validate adapter-specific configs
	var sub interface{ Validate() error }
	switch s.Adapter {
	case "file":
		sub = &s.File
	case "redis":
		sub = &s.Redis
	case "sql":
		sub = &s.SQL
	}
	if sub != nil {
		if err := sub.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.Adapter, err))
		}
	}

	return joinErrs(errs)
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Dir == "" {
		return errors.New("dir cannot be empty")
	}
	return nil
}

// Validate validates redis configuration
func (r *RedisConfig) Validate() error {
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "addr cannot be empty")
	}
	if r.DB < 0 {
		errs = append(errs, "db cannot be negative")
	}
	if r.PoolSize < 0 {
		errs = append(errs, "pool_size cannot be negative")
	}
	return joinErrs(errs)
}

// Validate validates SQL configuration
func (s *SQLConfig) Validate() error {
	errs := oneOf("driver", s.Driver, []string{"postgres", "mysql", "sqlite"})
	if s.DSN == "" {
		errs = append(errs, "dsn cannot be empty (set HANZIKIT_SQL_DSN)")
	}
	if s.MaxOpenConns < 0 || s.MaxIdleConns < 0 {
		errs = append(errs, "connection limits cannot be negative")
	}
	return joinErrs(errs)
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	errs := oneOf("dispatch", e.Dispatch, []string{"sync", "async"})
	if e.LeaderboardSize <= 0 {
		errs = append(errs, "leaderboard_size must be > 0")
	}
	if e.QueueSize < 0 || e.Workers < 0 {
		errs = append(errs, "queue_size and workers cannot be negative")
	}
	return joinErrs(errs)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string
	errs = append(errs, oneOf("level", l.Level, []string{"debug", "info", "warn", "error"})...)
	errs = append(errs, oneOf("format", l.Format, []string{"json", "text"})...)
	errs = append(errs, oneOf("output", l.Output, []string{"stdout", "stderr"})...)
	return joinErrs(errs)
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	var errs []string

	if m.Enabled {
		if m.Path == "" || !strings.HasPrefix(m.Path, "/") {
			errs = append(errs, "path must start with / when metrics are enabled")
		}
		if m.TopAchievements < 0 {
			errs = append(errs, "top_achievements cannot be negative")
		}
	}

	return joinErrs(errs)
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	return joinErrs(errs)
}

// Validate validates outbound integrations
func (i *IntegrationsConfig) Validate() error {
	var errs []string
	for n, raw := range i.Webhooks {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("webhooks[%d] must be an http(s) URL", n))
		}
	}
	if len(i.Webhooks) > 0 && i.WebhookTimeout <= 0 {
		errs = append(errs, "webhook_timeout must be positive")
	}
	return joinErrs(errs)
}
