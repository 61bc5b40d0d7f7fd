package config

import (
	"errors"
	"log/slog"

	"github.com/spf13/viper"
)

type Config struct {
	Server Server
	Bun    BunConfig
	Redis  RedisConfig
	Logger LoggerConfig
}

type Server struct {
	Addr string
}

type BunConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr string
}

type LoggerConfig struct {
	Level string
}

// Load reads the named YAML config file from the config directory.
func Load(filename string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logger.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		slog.Error("Unable to unmarshal config", "err", err)
		return nil, err
	}
	return &c, nil
}

// SlogLevel maps the configured level name to a slog level, defaulting
// to info for unknown names.
func (c LoggerConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
