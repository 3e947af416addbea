package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromFallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Replace(zap.New(core))

	From(context.Background()).Info("hello", Component("test"))
	var noCtx context.Context
	From(noCtx).Info("nil ctx")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "test", logs.All()[0].ContextMap()["component"])
}

func TestToContextScopesLogger(t *testing.T) {
	global, globalLogs := observer.New(zapcore.InfoLevel)
	Replace(zap.New(global))

	scoped, scopedLogs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(scoped).With(RequestID("req-1")))

	From(ctx).Debug("scoped", Stage("LOGIN"), Err(errors.New("boom")))

	assert.Equal(t, 0, globalLogs.Len())
	require.Equal(t, 1, scopedLogs.Len())
	fields := scopedLogs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "LOGIN", fields["stage"])
	assert.Equal(t, "boom", fields["error"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestBuildAddsServiceFields(t *testing.T) {
	l := build(Config{Env: "prod", Level: "debug", ServiceName: "meshconsole", Version: "1.2.3"})
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
