package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	API struct {
		URL     string        `env:"API_URL" envDefault:"http://localhost:5001/api"`
		Timeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
		Tracing bool          `env:"TRACING_ENABLED"`
	}

	// login/register throttling on the client side
	AuthRate struct {
		Limit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
		Burst int     `env:"AUTH_RATE_BURST" envDefault:"10"`
	}

	Token struct {
		Store    string `env:"TOKEN_STORE" envDefault:"file"`
		File     string `env:"TOKEN_FILE"`
		RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
		Key      string `env:"TOKEN_KEY" envDefault:"token"`
	}

	Doctors struct {
		CacheSize int           `env:"DOCTOR_CACHE_SIZE" envDefault:"256"`
		CacheTTL  time.Duration `env:"DOCTOR_CACHE_TTL" envDefault:"5m"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"console"`
	}
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Token.File == "" {
		cfg.Token.File = defaultTokenFile()
	}

	switch cfg.Token.Store {
	case "file", "redis", "memory":
	default:
		return nil, fmt.Errorf("config: TOKEN_STORE must be file, redis or memory (got %q)", cfg.Token.Store)
	}
	if cfg.AuthRate.Limit <= 0 || cfg.AuthRate.Burst < 1 {
		return nil, fmt.Errorf("config: AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	return cfg, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "hospital-desk", "token")
}
