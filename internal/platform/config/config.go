// Package config loads service configuration from the environment. A local
// .env file is honored in development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Auth     AuthConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME" envDefault:"be-install-workflow"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8086"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds Postgres pool settings.
type DatabaseConfig struct {
	Host        string        `env:"DB_HOST" envDefault:"localhost"`
	Port        int           `env:"DB_PORT" envDefault:"5432"`
	User        string        `env:"DB_USER" envDefault:"postgres"`
	Password    string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Database    string        `env:"DB_NAME" envDefault:"install_workflow"`
	SSLMode     string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns    int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnTime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxIdleTime time.Duration `env:"DB_MAX_CONN_IDLE" envDefault:"30m"`
}

// NATSConfig holds the notification stream settings. An empty URL disables
// publishing entirely.
type NATSConfig struct {
	URL           string `env:"NATS_URL"`
	StreamName    string `env:"NATS_STREAM" envDefault:"NOTIFICATIONS"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"notifications.install"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"voltora-identity"`
}

// Load reads configuration from the environment, after loading .env when
// present. A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
