package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/medflow/medflow-dispensary/pkg/config"
	"github.com/medflow/medflow-dispensary/pkg/logger"
)

// DB is the audit store's connection pool.
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// New opens and pings the pool described by cfg.
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := Wrap(conn, log)
	db.logger.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("connected to audit database")
	return db, nil
}

// Wrap adopts an existing connection, e.g. a sqlmock or test container.
func Wrap(conn *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: conn, logger: log.WithComponent("database")}
}

// Health pings with a one second budget and reports pool usage.
func (db *DB) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	stats := db.Stats()
	return map[string]string{
		"status":           "up",
		"open_connections": strconv.Itoa(stats.OpenConnections),
		"in_use":           strconv.Itoa(stats.InUse),
	}
}

// Migrate runs statements in order in one transaction. They run on every
// start, so each must be idempotent.
func (db *DB) Migrate(ctx context.Context, statements ...string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).Msg("migration rollback failed")
			}
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
