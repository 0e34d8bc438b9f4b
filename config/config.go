package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported store backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Static   StaticConfig   `mapstructure:"static"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects where and how posts are persisted
type StoreConfig struct {
	Dir     string `mapstructure:"dir"`
	Backend string `mapstructure:"backend"`
}

// StaticConfig holds the front end directory
type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds abuse-protection settings
type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from defaults, an optional .env file and the environment.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.dir", "data")
	v.SetDefault("store.backend", BackendFile)

	v.SetDefault("static.dir", "public")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("security.rate_limit_rps", 5)
	v.SetDefault("security.rate_limit_burst", 10)

	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"server.host":             "HOST",
		"server.port":             "PORT",
		"server.read_timeout":     "SERVER_READ_TIMEOUT",
		"server.write_timeout":    "SERVER_WRITE_TIMEOUT",
		"server.idle_timeout":     "SERVER_IDLE_TIMEOUT",
		"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",

		"store.dir":     "POSTS_DIR",
		"store.backend": "STORE_BACKEND",

		"static.dir": "STATIC_DIR",

		"logger.level":  "LOG_LEVEL",
		"logger.format": "LOG_FORMAT",

		"security.rate_limit_rps":   "RATE_LIMIT_RPS",
		"security.rate_limit_burst": "RATE_LIMIT_BURST",

		"metrics.enabled": "ENABLE_METRICS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Store.Dir == "" {
		return fmt.Errorf("posts directory is required")
	}

	switch cfg.Store.Backend {
	case BackendFile, BackendBadger:
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Security.RateLimitRPS <= 0 || cfg.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}

// Addr returns the listen address for the HTTP server
func (cfg *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// PostsFile returns the path of the JSON posts file
func (cfg *StoreConfig) PostsFile() string {
	return filepath.Join(cfg.Dir, "posts.json")
}

// BadgerDir returns the directory of the badger database
func (cfg *StoreConfig) BadgerDir() string {
	return filepath.Join(cfg.Dir, "badger")
}
