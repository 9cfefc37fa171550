package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration values.
type Config struct {
	Secret       string `envconfig:"SECRET" default:"dev_secret"`
	DatabaseDSN  string `envconfig:"DATABASE_DSN" default:"pharmtrack.db"`
	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	SeedFile     string `envconfig:"SEED_FILE" default:""`
	SeedPharmacy string `envconfig:"SEED_PHARMACY" default:""`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from a .env file (when present) and the
// environment, with reasonable defaults.
func Load() Config {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}
