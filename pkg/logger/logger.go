// Package logger wraps log/slog with a process-wide logger and a
// request-scoped variant.
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "order_id", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mmsi/orderdesk/config"
)

var L *slog.Logger

func init() {
	L = New(os.Stdout, config.AppEnv())
	slog.SetDefault(L)
}

// New builds a logger for env: JSON at INFO in production, text at DEBUG
// elsewhere.
func New(w io.Writer, env string) *slog.Logger {
	return slog.New(handlerFor(w, env))
}

func handlerFor(w io.Writer, env string) slog.Handler {
	switch env {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AttachMongo mirrors every record into MongoDB in addition to stdout.
// The returned func flushes and disconnects.
func AttachMongo(uri, db string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, "app_logs")
	if err != nil {
		return func() {}, err
	}
	L = slog.New(NewMultiHandler(handlerFor(os.Stdout, config.AppEnv()), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the logger injected by the request middleware, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
