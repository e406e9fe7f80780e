// Package config loads simulator settings from a YAML file, a .env file and
// FORGE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Storage    StorageConfig    `mapstructure:"storage"`
	API        APIConfig        `mapstructure:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SimulationConfig tunes the game clock and machine behaviour.
type SimulationConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	Speed        float64       `mapstructure:"speed" validate:"gte=0"`
	Seed         int64         `mapstructure:"seed"`
	BreakChance  float64       `mapstructure:"break_chance" validate:"gte=0,lte=1"`
	CatalogPath  string        `mapstructure:"catalog_path"`
	StartMoney   int           `mapstructure:"start_money" validate:"gte=0"`
}

// StorageConfig locates save files.
type StorageConfig struct {
	SavePath         string        `mapstructure:"save_path" validate:"required"`
	DBPath           string        `mapstructure:"db_path" validate:"required"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval" validate:"gte=0"`
}

// APIConfig configures the HTTP boundary.
type APIConfig struct {
	Port      int     `mapstructure:"port" validate:"min=1,max=65535"`
	AdminKey  string  `mapstructure:"admin_key"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	Burst     int     `mapstructure:"burst" validate:"min=1"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// Log format: json, text
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfig loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. Config file (forgesim.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	registerKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("forgesim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// registerKeys makes every key known to viper so AutomaticEnv reaches it
// during Unmarshal.
func registerKeys(v *viper.Viper) {
	var d Config
	SetDefaults(&d)
	v.SetDefault("simulation.tick_interval", d.Simulation.TickInterval)
	v.SetDefault("simulation.speed", d.Simulation.Speed)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.break_chance", d.Simulation.BreakChance)
	v.SetDefault("simulation.catalog_path", d.Simulation.CatalogPath)
	v.SetDefault("simulation.start_money", d.Simulation.StartMoney)
	v.SetDefault("storage.save_path", d.Storage.SavePath)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("storage.autosave_interval", d.Storage.AutosaveInterval)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.admin_key", d.API.AdminKey)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// MustLoadConfig loads configuration and panics on error (for use in main.go).
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger writing to stderr.
func (c LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
