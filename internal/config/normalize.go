package config

import (
	"fmt"
	"strings"
	"time"
)

func setString(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw, field string) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	*dst = d
	return nil
}

func normalizeAppConfig(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Push.Driver = strings.ToLower(strings.TrimSpace(cfg.Push.Driver))
	cfg.Push.Bark.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.Push.Bark.ServerURL), "/")
	cfg.Redis.URL = normalizeRedisRawURL(cfg.Redis.URL)
	if cfg.Push.Driver == "" {
		cfg.Push.Driver = PushNone
	}
}

// normalizeRedisRawURL accepts a bare host:port and prefixes the scheme.
func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultRedisURL
	}
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}
