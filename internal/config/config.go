// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса магазина.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	RedisAddr     string `env:"REDIS_ADDR"`
	KafkaBrokers  string `env:"KAFKA_BROKERS"`
	AuthSecret    string `env:"AUTH_SECRET"`
	ShippingPrice int64  `env:"SHIPPING_PRICE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddr := cfg.RedisAddr
	envKafkaBrokers := cfg.KafkaBrokers
	envAuthSecret := cfg.AuthSecret
	envShippingPrice := cfg.ShippingPrice

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddr, "r", "", "redis address (empty disables caching)")
	flag.StringVar(&cfg.KafkaBrokers, "k", "", "comma-separated kafka brokers (empty disables events)")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth token signing")
	flag.Int64Var(&cfg.ShippingPrice, "p", 0, "flat shipping price in VND")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddr != "" {
		cfg.RedisAddr = envRedisAddr
	}
	if envKafkaBrokers != "" {
		cfg.KafkaBrokers = envKafkaBrokers
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envShippingPrice != 0 {
		cfg.ShippingPrice = envShippingPrice
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// BrokerList разбивает список брокеров Kafka из конфигурации.
func (c *Config) BrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
