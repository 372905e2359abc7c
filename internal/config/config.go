package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"pushrelay/internal/constants"
)

// Config holds everything the process reads from its environment.
// Recognized variables are exactly SUPABASE_URL, SUPABASE_SERVICE_KEY and
// PORT; nothing else is consulted.
type Config struct {
	SupabaseURL        string
	SupabaseServiceKey string
	Port               int
}

// ConfigError reports an unusable environment
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

var (
	ErrMissingSupabaseURL = ConfigError{Message: "missing SUPABASE_URL"}
	ErrMissingServiceKey  = ConfigError{Message: "missing SUPABASE_SERVICE_KEY"}
)

// Load reads and validates the process configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		Port:               constants.DefaultServerPort,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, ConfigError{Message: fmt.Sprintf("invalid PORT value %q", port)}
		}
		cfg.Port = p
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(c *Config) error {
	if c.SupabaseURL == "" {
		return ErrMissingSupabaseURL
	}
	if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ConfigError{Message: fmt.Sprintf("invalid SUPABASE_URL %q", c.SupabaseURL)}
	}
	if c.SupabaseServiceKey == "" {
		return ErrMissingServiceKey
	}
	return nil
}
