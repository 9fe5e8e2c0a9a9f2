package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/config"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/db"
)

// store bundles the repositories for the configured driver.
type store struct {
	driver   string
	patients patient.PatientRepository
	records  patient.RecordRepository
	health   db.Pinger
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.AutoMigrate {
			n, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info().Int("applied", n).Msg("migrations applied")
		}
		logger.Info().Msg("connected to postgres")
		return &store{
			driver:   cfg.StoreDriver,
			patients: patient.NewPatientRepoPG(pool),
			records:  patient.NewRecordRepoPG(pool),
			health:   pool,
			close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &store{
			driver:   cfg.StoreDriver,
			patients: patient.NewPatientRepoSQLite(sqlDB),
			records:  patient.NewRecordRepoSQLite(sqlDB),
			health:   db.PingSQL(sqlDB),
			close:    func() { sqlDB.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return &store{
			driver:   cfg.StoreDriver,
			patients: patient.NewMemoryPatientRepo(),
			records:  patient.NewMemoryRecordRepo(),
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
