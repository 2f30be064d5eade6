// Package pgstore is the gorm-backed Repository used with PostgreSQL.
// It runs against any gorm dialector; row locks are only taken on
// postgres.
package pgstore

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Config returns the gorm config shared by Open and tests.
func Config() *gorm.Config {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to postgres at dsn and migrates the schema.
func Open(dsn string, log *logger.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return New(db, log)
}

// New wraps an open gorm handle and runs AutoMigrate.
func New(db *gorm.DB, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if err := db.AutoMigrate(
		&learnerRow{}, &itemRow{}, &stateRow{}, &attemptRow{}, &snapshotRunRow{}, &llmCallRow{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Debug("pgstore ready", "dialect", db.Dialector.Name())
	return &Store{db: db, log: log}, nil
}

// DB exposes the gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// forUpdate adds a row lock where the dialect supports it.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
