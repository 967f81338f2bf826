// Package config reads server settings from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	appDirName = "rps-gauntlet"
	dbFileName = "rps.db"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the server settings.
type Config struct {
	Addr             string
	DBDriver         string
	DBPath           string
	PostgresDSN      string
	LevelsFile       string
	LogLevel         string
	ConditionTimeout time.Duration
}

// Load reads the environment. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:             envString("RPS_ADDR", "127.0.0.1:8077"),
		DBDriver:         envString("RPS_DB_DRIVER", DriverSQLite),
		DBPath:           envString("RPS_DB_PATH", filepath.Join(AppDataDir(), dbFileName)),
		PostgresDSN:      os.Getenv("RPS_POSTGRES_DSN"),
		LevelsFile:       os.Getenv("RPS_LEVELS_FILE"),
		LogLevel:         envString("RPS_LOG_LEVEL", "info"),
		ConditionTimeout: time.Duration(envInt("RPS_CONDITION_TIMEOUT_MS", 250)) * time.Millisecond,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("RPS_DB_PATH must not be empty")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("RPS_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown RPS_DB_DRIVER %q", c.DBDriver)
	}
	if c.ConditionTimeout <= 0 {
		return fmt.Errorf("RPS_CONDITION_TIMEOUT_MS must be positive, got %s", c.ConditionTimeout)
	}
	if c.Addr == "" {
		return errors.New("RPS_ADDR must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid RPS_LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// AppDataDir returns an OS-appropriate writable directory.
func AppDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appDirName)
	}
	return "."
}

func envString(k, def string) string {
	if s := os.Getenv(k); s != "" {
		return s
	}
	return def
}

// envInt returns def when k is unset. A malformed value yields 0 so that
// Validate reports it instead of silently using the default.
func envInt(k string, def int) int {
	s := os.Getenv(k)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
