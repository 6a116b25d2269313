// Package relational stores users and relationships in a SQL database
// through gorm: PostgreSQL in production, SQLite for local runs and tests.
package relational

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	slowQueryThreshold = 200 * time.Millisecond
	sqliteForeignKeys  = "_pragma=foreign_keys(1)"
)

// Config captures the settings required to open the database.
type Config struct {
	Driver string
	DSN    string
	Logger zerolog.Logger
}

// Open connects to the database and verifies connectivity with a ping.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("relational: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg.Logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("relational open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("relational pool: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// Every connection to an in-memory database is a separate database.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("relational ping: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the users and user_relationships tables,
// including the unique index on user_relationships.client_id.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&userRecord{}, &relationshipRecord{}); err != nil {
		return fmt.Errorf("relational migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Pinger adapts a *gorm.DB to the readiness probe.
type Pinger struct {
	DB *gorm.DB
}

func (p Pinger) Name() string { return p.DB.Dialector.Name() }

func (p Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteForeignKeys
	}
	return dsn + "?" + sqliteForeignKeys
}

// gormWriter forwards gorm's log lines to zerolog.
type gormWriter struct {
	log   zerolog.Logger
	level zerolog.Level
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WithLevel(w.level).Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger logs every statement when the service logs at debug or
// below, otherwise only slow queries and errors.
func newGormLogger(log zerolog.Logger) gormlogger.Interface {
	mode, level := gormlogger.Warn, zerolog.WarnLevel
	if log.GetLevel() <= zerolog.DebugLevel {
		mode, level = gormlogger.Info, zerolog.DebugLevel
	}
	return gormlogger.New(gormWriter{log: log, level: level}, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  mode,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
