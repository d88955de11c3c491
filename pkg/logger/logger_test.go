package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))
}

func TestWithCtxReturnsInjected(t *testing.T) {
	var buf bytes.Buffer
	scoped := New(&buf, "local").With("request_id", "r-1")
	ctx := InjectLogger(context.Background(), scoped)

	WithCtx(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=r-1")
}

func TestProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "production").Info("ready", "port", "8080")
	assert.Contains(t, buf.String(), `"msg":"ready"`)

	buf.Reset()
	New(&buf, "production").Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	log := slog.New(NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)).With("user_id", "u-1")

	log.Warn("sweep")
	assert.Contains(t, a.String(), "user_id=u-1")
	assert.Contains(t, b.String(), `"user_id":"u-1"`)
}
