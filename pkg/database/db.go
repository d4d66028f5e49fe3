// Package database opens the gorm handle for the configured driver, with
// pool limits, statement metrics and query logging through pkg/logger.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/orderly/config"
)

var dialects = map[string]func(dsn string) gorm.Dialector{
	"sqlite":    sqlite.Open,
	"postgres":  postgres.Open,
	"mysql":     mysql.Open,
	"sqlserver": sqlserver.Open,
}

// Options is everything Open needs. Zero pool values leave database/sql
// defaults in place.
type Options struct {
	Driver       string
	DSN          string
	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration
	SlowQuery    time.Duration
}

// FromConfig reads Options from config.
func FromConfig() Options {
	return Options{
		Driver:       config.DatabaseDriver(),
		DSN:          config.DatabaseDSN(),
		MaxOpen:      config.DBMaxOpenConns(),
		MaxIdle:      config.DBMaxIdleConns(),
		ConnLifetime: config.DBConnMaxLifetime(),
		SlowQuery:    config.DBSlowQueryThreshold(),
	}
}

// Open is OpenWith for a driver and DSN with default pool settings.
func Open(driver, dsn string) (*gorm.DB, error) {
	return OpenWith(context.Background(), Options{Driver: driver, DSN: dsn})
}

// OpenWith connects, applies the pool limits and pings. SQLite gets a
// single connection and enforced foreign keys.
func OpenWith(ctx context.Context, o Options) (*gorm.DB, error) {
	dialect, ok := dialects[o.Driver]
	if !ok {
		return nil, fmt.Errorf("database: unsupported driver %q", o.Driver)
	}

	db, err := gorm.Open(dialect(o.DSN), &gorm.Config{
		Logger:  queryLog{slow: o.SlowQuery, level: gormlogger.Warn},
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", o.Driver, err)
	}
	if err := instrument(db); err != nil {
		return nil, fmt.Errorf("database: instrument: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.Driver == "sqlite" {
		pool.SetMaxOpenConns(1)
	} else {
		if o.MaxOpen > 0 {
			pool.SetMaxOpenConns(o.MaxOpen)
		}
		if o.MaxIdle > 0 {
			pool.SetMaxIdleConns(o.MaxIdle)
		}
		if o.ConnLifetime > 0 {
			pool.SetConnMaxLifetime(o.ConnLifetime)
		}
	}

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("database: ping %s: %w", o.Driver, err)
	}
	if o.Driver == "sqlite" {
		if err := db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("database: foreign keys: %w", err)
		}
	}
	return db, nil
}

// Ping checks the live connection within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database: not connected")
	}
	pool, err := db.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}
