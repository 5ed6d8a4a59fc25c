package db

import (
	"fmt"

	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open establishes the DB connection without running migrations
func Open(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Log.Info().Msg("database connection established")
	return db, nil
}

// NewStore builds the repository layer for the configured driver. The
// returned close func releases the connection pool.
func NewStore(cfg *config.Config) (*repository.Store, func(), error) {
	if cfg.DBDriver == "memory" {
		logger.Log.Warn().Msg("using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repository.NewGormStore(db), closeFn, nil
}
