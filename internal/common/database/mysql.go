// internal/common/database/mysql.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	"docverify/internal/common/config"

	"github.com/go-sql-driver/mysql"
)

// MySQLDSN builds the driver DSN. parseTime is required for the DATETIME
// columns to scan into time.Time.
func MySQLDSN(cfg config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

// NewMySQL creates a new MySQL client
func NewMySQL(cfg config.MySQLConfig) (*SQLClient, error) {
	db, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: config.DriverMySQL}, nil
}
