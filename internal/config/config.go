package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config captures every configurable aspect of the loft server.
//
// Sources, in order of precedence: environment variables (LOFT_*),
// configuration file (YAML), defaults.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`
}

type StorageConfig struct {
	// Root is the directory holding the HEAD marker and one
	// subdirectory per revision.
	Root string `mapstructure:"root" validate:"required"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

type PoolConfig struct {
	// Workers bounds concurrent filesystem work. Zero means one
	// worker per available CPU.
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

type ArchiveConfig struct {
	// MaxEntries caps the number of entries extracted from an
	// uploaded archive.
	MaxEntries int `mapstructure:"max_entries" validate:"gt=0"`

	// MaxTotalBytes caps the total bytes extracted from an uploaded
	// archive.
	MaxTotalBytes int64 `mapstructure:"max_total_bytes" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("storage.root", "./workspaces")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("pool.workers", 0)
	v.SetDefault("archive.max_entries", 10_000)
	v.SetDefault("archive.max_total_bytes", 512<<20)
}

// Load reads configuration from the given file (optional), the
// environment and defaults, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LOFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("loft")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
