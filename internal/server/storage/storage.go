package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"

	"kbodata/internal/server/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store handles relational database operations over a process-owned connection pool
type Store struct {
	db           *sql.DB
	dialect      dialect
	path         string
	healthStatus atomic.Bool
	log          *zap.Logger
}

// NewStore opens the configured database and sizes its pool
func NewStore(cfg config.DBConfig, devMode bool, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.driver == config.DriverSQLite {
		// Enable WAL mode in development for better concurrency
		if devMode {
			if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
			}
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		db:      db,
		dialect: d,
		path:    cfg.Path,
		log:     logger.Named("storage"),
	}
	s.healthStatus.Store(true)

	return s, nil
}

// IsHealthy returns true if the storage is operational
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

// Ping checks connectivity and restores the health flag on success
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		s.healthStatus.Store(false)
		return err
	}
	s.healthStatus.Store(true)
	return nil
}

// withTx runs fn in a transaction, marking the store degraded when the database rejects it
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.degrade("failed to begin transaction", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		if ctx.Err() == nil {
			s.degrade("write operation failed", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.degrade("failed to commit", err)
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.healthStatus.Store(true)
	return nil
}

func (s *Store) degrade(msg string, err error) {
	s.log.Error("storage degraded: "+msg, zap.Error(err))
	s.healthStatus.Store(false)
}

// Close closes the connection pool
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.dialect.schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDB removes the SQLite database file
func (s *Store) DeleteDB() error {
	if s.dialect.driver != config.DriverSQLite {
		return fmt.Errorf("delete is only supported for %s", config.DriverSQLite)
	}

	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// ☣ DESTRUCTIVE: Removes database file
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete database file: %w", err)
		}
	}

	return nil
}
