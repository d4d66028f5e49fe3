package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// queryLog sends gorm's output to the request-scoped slog logger. At Warn
// it reports failed and slow statements; at Info every statement is
// logged at debug.
type queryLog struct {
	slow  time.Duration
	level gormlogger.LogLevel
}

func (q queryLog) LogMode(l gormlogger.LogLevel) gormlogger.Interface {
	q.level = l
	return q
}

func (q queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		logger.WithCtx(ctx).Info("gorm: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		logger.WithCtx(ctx).Warn("gorm: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		logger.WithCtx(ctx).Error("gorm: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		sql, rows := fc()
		logger.WithCtx(ctx).Warn("db: statement failed",
			"sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case q.slow > 0 && elapsed > q.slow && q.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WithCtx(ctx).Warn("db: slow statement",
			"sql", sql, "rows", rows, "elapsed", elapsed, "threshold", q.slow)
	case q.level >= gormlogger.Info:
		sql, rows := fc()
		logger.WithCtx(ctx).Debug("db: statement", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
