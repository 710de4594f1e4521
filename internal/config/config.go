// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Server struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type Database struct {
	URL          string `yaml:"url" env:"URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

type Storage struct {
	Backend string `yaml:"backend" env:"BACKEND"`
}

// RabbitMQ is optional; without a URL failed best-effort steps are only reported.
type RabbitMQ struct {
	URL           string        `yaml:"url" env:"URL"`
	Prefetch      int           `yaml:"prefetch" env:"PREFETCH"`
	DepthInterval time.Duration `yaml:"depth_interval" env:"DEPTH_INTERVAL"`
}

// Redis is optional; without an address locks are held in process.
type Redis struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"LOCK_TTL"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// Login limits authentication attempts per client IP.
type Login struct {
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	Burst         int     `yaml:"burst" env:"BURST"`
}

type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type Config struct {
	Server   Server   `yaml:"server" envPrefix:"SERVER_"`
	Database Database `yaml:"database" envPrefix:"DATABASE_"`
	Storage  Storage  `yaml:"storage" envPrefix:"STORAGE_"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Redis    Redis    `yaml:"redis" envPrefix:"REDIS_"`
	Workers  int      `yaml:"workers" env:"WORKERS"`
	Auth     Auth     `yaml:"auth" envPrefix:"AUTH_"`
	Login    Login    `yaml:"login" envPrefix:"LOGIN_"`
	Log      Log      `yaml:"log" envPrefix:"LOG_"`
}

func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Database: Database{MaxOpenConns: 10},
		Storage:  Storage{Backend: BackendPostgres},
		RabbitMQ: RabbitMQ{Prefetch: 10, DepthInterval: 15 * time.Second},
		Redis:    Redis{LockTTL: 30 * time.Second},
		Workers:  4,
		Auth:     Auth{TokenTTL: 30 * time.Minute, BcryptCost: 12},
		Login:    Login{RatePerSecond: 1, Burst: 5},
		Log:      Log{Level: "info", Format: "json"},
	}
}

// LoadConfig layers defaults, the YAML file at path (skipped when empty) and
// environment variables, then validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendPostgres, BackendMemory))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost %d out of range 4-31", c.Auth.BcryptCost))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Login.RatePerSecond <= 0 || c.Login.Burst <= 0 {
		errs = append(errs, errors.New("login.rate_per_second and login.burst must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("redis.lock_ttl must be positive"))
	}
	if c.RabbitMQ.URL != "" && c.RabbitMQ.Prefetch <= 0 {
		errs = append(errs, errors.New("rabbitmq.prefetch must be positive"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
