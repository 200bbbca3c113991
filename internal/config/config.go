// Package config содержит логику чтения конфигурации сервиса clipstream.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса clipstream.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	AdProviderAddress string `env:"AD_PROVIDER_ADDRESS"`
	AuthSecret        string `env:"AUTH_SECRET"`
	TimeZone          string `env:"TIME_ZONE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAdProvider := cfg.AdProviderAddress
	envAuthSecret := cfg.AuthSecret
	envTimeZone := cfg.TimeZone

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AdProviderAddress, "r", "", "rewarded ad provider address")
	flag.StringVar(&cfg.AuthSecret, "s", "clipstream-secret", "secret key for auth cookies")
	flag.StringVar(&cfg.TimeZone, "z", "Local", "IANA time zone for calendar day math")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAdProvider != "" {
		cfg.AdProviderAddress = envAdProvider
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envTimeZone != "" {
		cfg.TimeZone = envTimeZone
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
