// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docverify/internal/common/config"

	_ "github.com/lib/pq"
)

// SQLClient wraps a pooled relational connection and remembers which
// driver opened it so the store can pick its placeholder dialect.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*SQLClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: config.DriverPostgres}, nil
}

// NewSQL opens whichever backend cfg.Driver selects.
func NewSQL(cfg config.DatabaseConfig) (*SQLClient, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgres(cfg.Postgres)
	case config.DriverMySQL:
		return NewMySQL(cfg.MySQL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Ping tests the database connection
func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
