package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret    string `mapstructure:"JWT_HMAC_SECRET"`
	StaticTokens string `mapstructure:"STATIC_TOKENS"`

	DefaultTimezone   string `mapstructure:"DEFAULT_TIMEZONE"`
	MaxApplyRangeDays int    `mapstructure:"MAX_APPLY_RANGE_DAYS"`

	// Template cache; disabled when RedisAddr is empty.
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	TemplateCacheTTL time.Duration `mapstructure:"TEMPLATE_CACHE_TTL"`

	RateLimitPerMin int    `mapstructure:"RATE_LIMIT_PER_MIN"`
	CORSOrigins     string `mapstructure:"CORS_ORIGINS"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
}

var keys = []string{
	"APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "JWT_HMAC_SECRET", "STATIC_TOKENS",
	"DEFAULT_TIMEZONE", "MAX_APPLY_RANGE_DAYS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"TEMPLATE_CACHE_TTL", "RATE_LIMIT_PER_MIN", "CORS_ORIGINS",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
}

// Load reads config.yaml (from the working directory or ./config) when
// present, then lets environment variables override it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEFAULT_TIMEZONE", "Africa/Johannesburg")
	v.SetDefault("MAX_APPLY_RANGE_DAYS", 366)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TEMPLATE_CACHE_TTL", "5m")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.JWTSecret == "" && strings.TrimSpace(c.StaticTokens) == "" {
		problems = append(problems, "one of JWT_HMAC_SECRET or STATIC_TOKENS is required")
	}
	if c.MaxApplyRangeDays <= 0 {
		problems = append(problems, "MAX_APPLY_RANGE_DAYS must be positive")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		problems = append(problems, fmt.Sprintf("DEFAULT_TIMEZONE %q: %v", c.DefaultTimezone, err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, ", "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the default planning timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if c.Port == "" {
		return ":8080"
	}
	return ":" + c.Port
}

// CORSOriginList splits CORSOrigins on commas.
func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
