package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcdev12/studyroom/go/internal/dbconfig"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"github.com/rs/zerolog/log"
)

func setupStorage(ctx context.Context, cfg dbconfig.StorageConfig) (repository.Storage, error) {
	switch cfg.Driver {
	case dbconfig.DriverMemory:
		log.Warn().Msg("using in-memory timer storage; records will not survive a restart")
		return repository.NewMemoryStorage(), nil

	case dbconfig.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		storage, err := repository.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite timer storage")
		return storage, nil

	case dbconfig.DriverPostgres:
		storage, err := repository.NewPostgresStorage(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		log.Info().
			Str("host", cfg.Postgres.Host).
			Int("port", cfg.Postgres.Port).
			Str("database", cfg.Postgres.Database).
			Msg("using postgres timer storage")
		return storage, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
