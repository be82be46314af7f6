package config

import (
	"time"
)

// Config is a read-only view over decoded settings. Every getter takes a
// fallback returned when the key is absent or holds a value of the wrong
// shape; loading never fails on a bad value, only on a bad file.
type Config struct {
	settings map[string]any
}

// New wraps settings in a Config. A nil map yields an empty Config whose
// getters all return their fallbacks.
func New(settings map[string]any) Config {
	if settings == nil {
		settings = map[string]any{}
	}
	return Config{settings: settings}
}

// String returns the string under key, or fallback.
func (c Config) String(key, fallback string) string {
	if s, ok := c.settings[key].(string); ok {
		return s
	}
	return fallback
}

// Bool returns the bool under key, or fallback.
func (c Config) Bool(key string, fallback bool) bool {
	if b, ok := c.settings[key].(bool); ok {
		return b
	}
	return fallback
}

// Int returns the integer under key, or fallback. JSON decodes numbers as
// float64, so whole floats convert; fractional ones fall back.
func (c Config) Int(key string, fallback int) int {
	switch n := c.settings[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if whole := int(n); float64(whole) == n {
			return whole
		}
	}
	return fallback
}

// Duration returns the duration under key, or fallback. Strings go through
// time.ParseDuration ("500ms", "2m"); bare numbers count seconds.
func (c Config) Duration(key string, fallback time.Duration) time.Duration {
	switch d := c.settings[key].(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return fallback
		}
		return parsed
	case int:
		return time.Duration(d) * time.Second
	case int64:
		return time.Duration(d) * time.Second
	case float64:
		return time.Duration(d * float64(time.Second))
	}
	return fallback
}

// StringSlice returns the string list under key, or fallback. Decoded YAML
// and JSON lists arrive as []any; a single non-string element rejects the
// whole list.
func (c Config) StringSlice(key string, fallback []string) []string {
	switch list := c.settings[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return fallback
			}
			out[i] = s
		}
		return out
	}
	return fallback
}

// Any returns the raw value under key, or fallback.
func (c Config) Any(key string, fallback any) any {
	if v, ok := c.settings[key]; ok {
		return v
	}
	return fallback
}

// Sub returns the Config rooted at key's nested mapping, so callers can
// hand a component only its own section (hub.ConfigFrom(cfg.Sub("hub"))).
// A missing or non-mapping key yields an empty Config.
func (c Config) Sub(key string) Config {
	switch nested := c.settings[key].(type) {
	case map[string]any:
		return New(nested)
	case Config:
		return nested
	}
	return New(nil)
}

// Has reports whether key is present, regardless of the value. A key set to
// null is present.
func (c Config) Has(key string) bool {
	_, ok := c.settings[key]
	return ok
}

// Raw exposes the underlying settings map. Treat it as read-only.
func (c Config) Raw() map[string]any {
	return c.settings
}
