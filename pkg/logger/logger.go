// Package logger is the slog setup shared by the whole service. Inside a
// request, WithCtx returns the logger tagged with the request id:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order placed", "order_id", order.ID)
//	// → time=... level=INFO msg="order placed" request_id=a1b2c3d4 order_id=...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/shashiranjanraj/orderly/config"
)

// L is the process logger. Prefer WithCtx inside a request.
var L *slog.Logger

var (
	baseMu      sync.Mutex
	baseHandler slog.Handler
	mongoSink   *MongoHandler
)

func init() {
	baseHandler = console(os.Stdout)
	L = slog.New(baseHandler)
	slog.SetDefault(L)
}

// console builds the stdout handler. Production defaults to JSON at info,
// tests to text at warn and everything else to text at debug. LOG_LEVEL
// and LOG_FORMAT override either half.
func console(w io.Writer) slog.Handler {
	level, format := slog.LevelDebug, "text"
	switch config.AppEnv() {
	case "production", "prod":
		level, format = slog.LevelInfo, "json"
	case "test":
		level = slog.LevelWarn
	}
	if l, ok := config.LogLevel(); ok {
		level = l
	}
	if f := config.LogFormat(); f != "" {
		format = f
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// EnableMongo adds a MongoDB sink next to stdout. The returned func
// flushes it and restores the stdout-only logger.
func EnableMongo(opts MongoOptions) (func(), error) {
	h, err := NewMongoHandler(opts)
	if err != nil {
		return func() {}, err
	}

	baseMu.Lock()
	mongoSink = h
	L = slog.New(Tee(baseHandler, h))
	slog.SetDefault(L)
	baseMu.Unlock()

	return func() {
		baseMu.Lock()
		defer baseMu.Unlock()
		if mongoSink == nil {
			return
		}
		L = slog.New(baseHandler)
		slog.SetDefault(L)
		if n := mongoSink.Dropped(); n > 0 {
			L.Warn("logger: mongo sink dropped records", "count", n)
		}
		mongoSink.Close()
		mongoSink = nil
	}, nil
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by InjectLogger, or the
// base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx for WithCtx. The request middleware calls
// it with a logger already tagged with the request id.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }

// LevelFor maps an HTTP status to the level its access line is logged at.
func LevelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
