package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GormAdapter routes GORM logs through the project zap logger.
type GormAdapter struct {
	logLevel      logger.LogLevel
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewGormAdapter creates an adapter at the given GORM log level.
func NewGormAdapter(logLevel logger.LogLevel) *GormAdapter {
	baseLogger := log
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	return &GormAdapter{
		logLevel:      logLevel,
		logger:        baseLogger,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode implements logger.Interface.
func (l *GormAdapter) LogMode(logLevel logger.LogLevel) logger.Interface {
	return &GormAdapter{logLevel: logLevel, logger: l.logger, slowThreshold: l.slowThreshold}
}

func (l *GormAdapter) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.logLevel >= logger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormAdapter) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormAdapter) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.logLevel >= logger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs completed statements, flagging failures and slow queries.
func (l *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	sql, rows := fc()
	elapsed := time.Since(begin)
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}

	if err != nil && l.logLevel >= logger.Error && !errors.Is(err, logger.ErrRecordNotFound) {
		l.logger.Error("Database operation failed", append(fields, zap.Error(err))...)
		return
	}

	if l.slowThreshold != 0 && elapsed > l.slowThreshold && l.logLevel >= logger.Warn {
		l.logger.Warn("Slow SQL query", fields...)
		return
	}

	if l.logLevel >= logger.Info {
		l.logger.Info("SQL query executed", fields...)
	}
}

var _ logger.Interface = (*GormAdapter)(nil)
