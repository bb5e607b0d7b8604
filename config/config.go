package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	NATS     NATSConfig     `yaml:"nats"`
	HTTP     HTTPConfig     `yaml:"http"`
	Level    LevelConfig    `yaml:"level"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the HTTP API configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LevelConfig holds the scoring and orchestration settings of the level
// module.
type LevelConfig struct {
	// Formula maps raw points to a level. The single variable is "points".
	// Empty falls back to points / points_per_level.
	Formula string `yaml:"formula"`

	// PointsPerLevel is the fallback divisor, 100 when unset.
	PointsPerLevel int64 `yaml:"points_per_level"`

	// Weights maps a material identifier to its point value per block.
	Weights map[string]int64 `yaml:"weights"`

	// DeathPenalty is the point deduction per counted death.
	DeathPenalty int64 `yaml:"death_penalty"`

	// MaxDeaths caps how many deaths count against the score.
	MaxDeaths int `yaml:"max_deaths"`

	// Cooldown is the minimum gap between non-forced calculations per
	// (owner, group). Zero disables throttling.
	Cooldown time.Duration `yaml:"cooldown"`

	// ScanTimeout bounds one island scan request. Zero means no bound beyond
	// the caller's context.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// FlushInterval is how often failed record writes are retried.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LEVEL_FORMULA"); v != "" {
		cfg.Level.Formula = v
	}
	if v := os.Getenv("LEVEL_POINTS_PER_LEVEL"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Level.PointsPerLevel = n
		}
	}
	if v := os.Getenv("LEVEL_DEATH_PENALTY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Level.DeathPenalty = n
		}
	}
	if v := os.Getenv("LEVEL_MAX_DEATHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Level.MaxDeaths = n
		}
	}
	if v := os.Getenv("LEVEL_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Level.Cooldown = d
		}
	}
	if v := os.Getenv("LEVEL_SCAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Level.ScanTimeout = d
		}
	}
	if v := os.Getenv("LEVEL_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Level.FlushInterval = d
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	cfg.HTTP.Addr = os.Getenv("HTTP_ADDR")

	cfg.Level.Formula = os.Getenv("LEVEL_FORMULA")
	if v := os.Getenv("LEVEL_POINTS_PER_LEVEL"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_POINTS_PER_LEVEL value: %v", err)
		}
		cfg.Level.PointsPerLevel = n
	}
	if v := os.Getenv("LEVEL_DEATH_PENALTY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_DEATH_PENALTY value: %v", err)
		}
		cfg.Level.DeathPenalty = n
	}
	if v := os.Getenv("LEVEL_MAX_DEATHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_MAX_DEATHS value: %v", err)
		}
		cfg.Level.MaxDeaths = n
	}
	if v := os.Getenv("LEVEL_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_COOLDOWN value: %v", err)
		}
		cfg.Level.Cooldown = d
	}
	if v := os.Getenv("LEVEL_SCAN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_SCAN_TIMEOUT value: %v", err)
		}
		cfg.Level.ScanTimeout = d
	}
	if v := os.Getenv("LEVEL_FLUSH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_FLUSH_INTERVAL value: %v", err)
		}
		cfg.Level.FlushInterval = d
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Level.PointsPerLevel <= 0 {
		cfg.Level.PointsPerLevel = 100
	}
	if cfg.Level.ScanTimeout <= 0 {
		cfg.Level.ScanTimeout = 30 * time.Second
	}
	if cfg.Level.FlushInterval <= 0 {
		cfg.Level.FlushInterval = time.Minute
	}
}
