package dbconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Storage drivers for the local timer record.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// StorageConfig selects where timer records are kept.
type StorageConfig struct {
	Driver     string
	SQLitePath string
	Postgres   Config
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}

	return Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "studyroom"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// NewStorageConfigFromEnv reads STORAGE_DRIVER, SQLITE_PATH and DB_*.
func NewStorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:     getEnv("STORAGE_DRIVER", DriverSQLite),
		SQLitePath: getEnv("SQLITE_PATH", DefaultSQLitePath()),
		Postgres:   NewConfigFromEnv(),
	}
}

// Validate checks that the driver is known and has what it needs.
func (c StorageConfig) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverPostgres:
		return nil
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite storage requires a path")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
}

// DefaultSQLitePath is ~/.studyroom/timer.db, or ./studyroom-timer.db without a home.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "studyroom-timer.db"
	}
	return filepath.Join(home, ".studyroom", "timer.db")
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
