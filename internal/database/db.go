package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/equinox/fleet-inspections/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals
var migrateMu sync.Mutex

// DB wraps the sqlx handle shared by all repositories.
type DB struct {
	*sqlx.DB
}

// ParseDSN turns DATABASE_URL into a driver config. A leading "mysql://"
// scheme is tolerated, times are parsed as UTC, and a non-empty auth token
// replaces the password.
func ParseDSN(rawURL, authToken string) (*mysql.Config, error) {
	dsn := strings.TrimPrefix(rawURL, "mysql://")
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	if authToken != "" {
		mc.Passwd = authToken
	}
	return mc, nil
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*DB, error) {
	mc, err := ParseDSN(cfg.URL, cfg.AuthToken)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: sqlx.NewDb(sqlDB, "mysql")}, nil
}

// Migrate applies every pending embedded migration.
func (d *DB) Migrate(_ context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(d.DB.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Tables lists the tables of the connected schema.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	var names []string
	err := d.SelectContext(ctx, &names,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}
