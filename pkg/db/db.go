package db

import (
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Tracing         bool
	Log             *zap.Logger
}

// Open connects to Postgres and configures the pool. Driver errors such as
// unique violations are translated into gorm sentinel errors.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), Config(opts))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := Configure(gdb, opts); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Config is shared with tests that open other dialectors.
func Config(opts Options) *gorm.Config {
	return &gorm.Config{
		Logger:                 newLogger(opts.Log),
		TranslateError:         true,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

func Configure(gdb *gorm.DB, opts Options) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.Tracing {
		if err := gdb.Use(otelgorm.NewPlugin(otelgorm.WithoutQueryVariables())); err != nil {
			return fmt.Errorf("register otelgorm: %w", err)
		}
	}
	return nil
}

func newLogger(l *zap.Logger) gormlogger.Interface {
	if l == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(zap.NewStdLog(l.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
