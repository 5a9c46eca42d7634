// Package config provides centralized configuration management for docgate.
// Settings are collected by viper and decoded into a typed Config with
// mapstructure decode hooks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/docgate/docgate/internal/core"
	"github.com/docgate/docgate/internal/core/registry"
)

// EnvPrefix is the prefix of every docgate environment variable.
const EnvPrefix = "DOCGATE"

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	// Registry defaults
	v.SetDefault("registry.base_url", registry.DefaultBaseURL)
	v.SetDefault("registry.create_path", registry.DefaultCreatePath)
	v.SetDefault("registry.timeout", "30s")
	v.SetDefault("registry.user_agent", "docgate")
	v.SetDefault("registry.max_response_bytes", 1<<20)

	// Admission defaults
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("rate_limit.limit", 10)

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("journal.enabled", true)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 4<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "production")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// BindEnv makes v read DOCGATE_* variables, with nested keys joined by "_"
// (rate_limit.limit -> DOCGATE_RATE_LIMIT_LIMIT).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings held by v into a validated Config and makes it
// the current configuration.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			StringToWindowHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks the settings the limiter and transport cannot run without.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &core.ConfigurationError{Reason: "config is required"}
	}
	if cfg.RateLimit.Window <= 0 {
		return &core.ConfigurationError{Field: "rate_limit.window", Reason: "must be positive"}
	}
	if cfg.RateLimit.Limit <= 0 {
		return &core.ConfigurationError{Field: "rate_limit.limit", Reason: "must be positive"}
	}
	if strings.TrimSpace(cfg.Registry.BaseURL) == "" {
		return &core.ConfigurationError{Field: "registry.base_url", Reason: "is required"}
	}
	if cfg.Registry.Timeout < 0 {
		return &core.ConfigurationError{Field: "registry.timeout", Reason: "must not be negative"}
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

var timeUnits = map[string]time.Duration{
	"nanosecond":  time.Nanosecond,
	"microsecond": time.Microsecond,
	"millisecond": time.Millisecond,
	"second":      time.Second,
	"minute":      time.Minute,
	"hour":        time.Hour,
	"day":         24 * time.Hour,
}

// ParseWindow parses a window as a Go duration or a time unit name.
// Unit names are case-insensitive and may be plural ("MINUTES").
func ParseWindow(value string) (time.Duration, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return 0, fmt.Errorf("window is empty")
	}

	if unit, ok := timeUnits[strings.TrimSuffix(normalized, "s")]; ok {
		return unit, nil
	}
	if unit, ok := timeUnits[normalized]; ok {
		return unit, nil
	}

	d, err := time.ParseDuration(normalized)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: use a duration like 1s or a unit like minute", value)
	}
	return d, nil
}

// StringToWindowHookFunc decodes rate_limit.window strings via ParseWindow.
// Other durations fall through to the standard duration hook.
func StringToWindowHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		raw, ok := data.(string)
		if !ok {
			return data, nil
		}
		if _, isUnit := timeUnits[strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s")]; !isUnit {
			return data, nil
		}
		return ParseWindow(raw)
	}
}

// DefaultStorePath returns the path to the attempt journal database.
func DefaultStorePath() string {
	if dataHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dataHome != "" {
		return filepath.Join(dataHome, "docgate", "docgate.db")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./docgate.db"
	}
	return filepath.Join(home, ".local", "share", "docgate", "docgate.db")
}
