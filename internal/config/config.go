// Package config loads and validates flagrant's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FLAGRANT_THRESHOLD.
const EnvPrefix = "FLAGRANT"

// Config holds every setting a detection run needs.
type Config struct {
	DefaultCountry string        `mapstructure:"default_country" validate:"omitempty,alpha,uppercase"`
	Table          string        `mapstructure:"table" validate:"required"`
	Logging        LoggingConfig `mapstructure:"logging"`
	Output         OutputConfig  `mapstructure:"output"`
	Threshold      float64       `mapstructure:"threshold" validate:"gte=0"`
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	Format  string `mapstructure:"format" validate:"oneof=table json csv"`
	All     bool   `mapstructure:"all"`
	Summary bool   `mapstructure:"summary"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

var validate = validator.New()

// Configure registers defaults and environment overrides on v.
func Configure(v *viper.Viper) {
	v.SetDefault("threshold", 5000.0)
	v.SetDefault("default_country", "US")
	v.SetDefault("table", "transactions")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.all", false)
	v.SetDefault("output.summary", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return os.ExpandEnv(path)
}
