package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options tunes the pool behind the gorm handle.
type Options struct {
	MaxConns       int
	ConnectTimeout time.Duration
}

// Open parses dsn with pgx, wraps the pgx driver in a *sql.DB and hands it to
// gorm. The database is pinged before returning so an unreachable server
// fails startup.
func Open(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if opts.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = opts.ConnectTimeout
	}

	sqlDB := stdlib.OpenDB(*connCfg)
	if opts.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxConns)
		sqlDB.SetMaxIdleConns(opts.MaxConns)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: NewGormLogger(slog.Default()),
	})
	if err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening gorm: %w", err)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping %s:%d: %w", connCfg.Host, connCfg.Port, err)
	}

	slog.Info("database connected", "host", connCfg.Host, "port", connCfg.Port, "db", connCfg.Database)
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// slogWriter adapts slog to gorm's Printf-style logger writer.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}

// NewGormLogger routes gorm's slow-query and error output into slog.
func NewGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
