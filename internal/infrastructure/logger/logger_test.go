package logger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leadflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		l, err := New(config.LogConfig{Level: "debug", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(config.LogConfig{Level: "warn", Format: "console", Output: path})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.FileExists(t, path)
	})

	t.Run("unwritable file path", func(t *testing.T) {
		_, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
		assert.Error(t, err)
	})
}

func TestL(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("falls back to nop logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background()).Info("nothing")
		})
	})

	t.Run("enriches with request, user and trace ids", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})

		ctx := WithContext(context.Background(), base)
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithUserID(ctx, "u1")
		ctx = trace.ContextWithSpanContext(ctx, spanCtx)

		L(ctx).Info("hello")

		entries := recorded.FilterMessage("hello").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "u1", fields["user_id"])
		assert.Equal(t, traceID.String(), fields["trace_id"])
	})
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, 50*time.Millisecond)
	ctx := WithRequestID(context.Background(), "req-9")
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("logs errors", func(t *testing.T) {
		gl.Trace(ctx, time.Now(), sqlFn, errors.New("boom"))
		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])
	})

	t.Run("skips record not found", func(t *testing.T) {
		before := recorded.Len()
		gl.Trace(ctx, time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Equal(t, before, recorded.Len())
	})

	t.Run("logs slow queries", func(t *testing.T) {
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
		assert.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("silent mode logs nothing", func(t *testing.T) {
		before := recorded.Len()
		gl.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sqlFn, errors.New("boom"))
		assert.Equal(t, before, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
