package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	APIBaseURL        string   `mapstructure:"API_BASE_URL"`
	APITimeoutSeconds int      `mapstructure:"API_TIMEOUT_SECONDS"`
	MinTime           string   `mapstructure:"MIN_TIME"`
	MaxTime           string   `mapstructure:"MAX_TIME"`
	DefaultPageSize   int      `mapstructure:"DEFAULT_PAGE_SIZE"`
	DayViewLimit      int      `mapstructure:"DAY_VIEW_LIMIT"`
	CacheTTLSeconds   int      `mapstructure:"CACHE_TTL_SECONDS"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_TIMEOUT_SECONDS", 15)
	v.SetDefault("MIN_TIME", "06:30")
	v.SetDefault("MAX_TIME", "21:30")
	v.SetDefault("DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("DAY_VIEW_LIMIT", 500)
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("API_TIMEOUT_SECONDS")
	v.BindEnv("MIN_TIME")
	v.BindEnv("MAX_TIME")
	v.BindEnv("DEFAULT_PAGE_SIZE")
	v.BindEnv("DAY_VIEW_LIMIT")
	v.BindEnv("CACHE_TTL_SECONDS")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// APITimeout returns the remote scheduling API request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// CacheTTL returns the lifetime of cached list queries.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Window returns the working-day bounds as minutes since midnight.
// Config is validated at load, so parsing here cannot fail.
func (c *Config) Window() (minMinute, maxMinute int) {
	minMinute, _ = parseClock(c.MinTime)
	maxMinute, _ = parseClock(c.MaxTime)
	return minMinute, maxMinute
}

// Validate checks that the configuration is safe to run. The working window
// must be a well-formed, non-empty interval and page sizing must be positive.
func (c *Config) Validate() error {
	minMinute, err := parseClock(c.MinTime)
	if err != nil {
		return fmt.Errorf("MIN_TIME: %w", err)
	}
	maxMinute, err := parseClock(c.MaxTime)
	if err != nil {
		return fmt.Errorf("MAX_TIME: %w", err)
	}
	if minMinute >= maxMinute {
		return fmt.Errorf("MIN_TIME %q must be earlier than MAX_TIME %q", c.MinTime, c.MaxTime)
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.DayViewLimit <= 0 {
		return fmt.Errorf("DAY_VIEW_LIMIT must be positive, got %d", c.DayViewLimit)
	}
	if c.APITimeoutSeconds <= 0 {
		return fmt.Errorf("API_TIMEOUT_SECONDS must be positive, got %d", c.APITimeoutSeconds)
	}
	return nil
}

// parseClock parses an "HH:MM" clock string into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q (want HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
