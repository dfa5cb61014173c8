package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config keeps runtime settings for the service.
type Config struct {
	Env             string        `mapstructure:"APP_ENV"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFile         string        `mapstructure:"LOG_FILE"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Overdue digest; both empty means the job is not scheduled.
	ReportInterval time.Duration `mapstructure:"OVERDUE_REPORT_INTERVAL"`
	ReportAt       string        `mapstructure:"OVERDUE_REPORT_AT"`

	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `mapstructure:"TELEGRAM_CHAT_ID"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                 EnvDevelopment,
	"HTTP_ADDR":               ":5000",
	"DATABASE_URL":            "tasks.db",
	"LOG_LEVEL":               "info",
	"LOG_FILE":                "",
	"SHUTDOWN_TIMEOUT":        "15s",
	"OVERDUE_REPORT_INTERVAL": "0s",
	"OVERDUE_REPORT_AT":       "",
	"TELEGRAM_TOKEN":          "",
	"TELEGRAM_CHAT_ID":        0,
}

// Load reads configuration from a .env file in the working directory (if
// any) and the environment, which takes precedence.
func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory for the .env file.
func LoadFrom(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.ReportAt = strings.TrimSpace(c.ReportAt)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	if c.DatabaseURL == "" {
		c.DatabaseURL = "tasks.db"
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("OVERDUE_REPORT_INTERVAL must not be negative")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// ReportEnabled tells whether the overdue digest job should run.
func (c Config) ReportEnabled() bool {
	return c.ReportInterval > 0 || c.ReportAt != ""
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}
