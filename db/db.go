// Package db stores the places datasets in PostgreSQL.
package db

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"telegram-places-bot/config"
)

var ErrNotConfigured = errors.New("database configuration is incomplete")

// DB wraps the pgx connection pool and provides database operations
type DB struct {
	Pool   *pgxpool.Pool
	Config config.DatabaseConfig
	logger *zap.Logger
}

// Connect establishes a connection to the database
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	if cfg.AllowInsecureSSL && (cfg.SSLMode == "require" || cfg.SSLMode == "verify-ca" || cfg.SSLMode == "verify-full") {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{cfg.Schema}.Sanitize())
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("database", cfg.DBName),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("schema", cfg.Schema),
	)

	return &DB{
		Pool:   pool,
		Config: cfg,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("Database connection pool closed")
	}
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// TableName returns a quoted, schema-qualified table name
func (db *DB) TableName(table string) string {
	return pgx.Identifier{db.Config.Schema, table}.Sanitize()
}
