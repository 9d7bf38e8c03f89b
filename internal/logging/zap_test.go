package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedZap(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_Levels(t *testing.T) {
	log, logs := newObservedZap(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.All()
	require.Len(t, entries, 4)

	want := []struct {
		level zapcore.Level
		msg   string
		key   string
		val   int64
	}{
		{zapcore.DebugLevel, "dbg", "a", 1},
		{zapcore.InfoLevel, "inf", "b", 2},
		{zapcore.WarnLevel, "wrn", "c", 3},
		{zapcore.ErrorLevel, "err", "d", 4},
	}
	for i, w := range want {
		assert.Equal(t, w.level, entries[i].Level)
		assert.Equal(t, w.msg, entries[i].Message)
		assert.Equal(t, w.val, entries[i].ContextMap()[w.key])
	}
}

func TestZapLogger_With(t *testing.T) {
	log, logs := newObservedZap(t)

	log.With("component", "vault").Info(context.Background(), "saved", "user", "alice")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "vault", fields["component"])
	assert.Equal(t, "alice", fields["user"])
}

func TestNewConsoleZapLogger(t *testing.T) {
	l, err := NewConsoleZapLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = NewConsoleZapLogger("loud")
	require.Error(t, err)
}
