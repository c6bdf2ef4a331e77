package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// capture swaps the package logger for an in-memory core and restores it.
func capture(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := sugar
	sugar = zap.New(core).Sugar()
	t.Cleanup(func() { sugar = prev })
	return logs
}

func TestInfoWithFields(t *testing.T) {
	logs := capture(t)

	Info("booking settled", "booking_id", 7, "scenario", "happy_path")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "booking settled", entry.Message)

	fields := entry.ContextMap()
	assert.EqualValues(t, 7, fields["booking_id"])
	assert.Equal(t, "happy_path", fields["scenario"])
}

func TestErrorf(t *testing.T) {
	logs := capture(t)

	Errorf("refund failed for booking %d", 42)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "refund failed for booking 42", entry.Message)
}

func TestDebugLevel(t *testing.T) {
	logs := capture(t)

	Debug("claim raced", "payment_id", 3)
	Debugf("retrying %s", "webhook")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, "retrying webhook", logs.All()[1].Message)
}

func TestLogBeforeInitDoesNotPanic(t *testing.T) {
	prev := sugar
	sugar = nil
	t.Cleanup(func() { sugar = prev })

	assert.NotPanics(t, func() {
		Info("first log line")
	})
	assert.NotNil(t, sugar)
}

func TestInitIsRepeatable(t *testing.T) {
	Init()
	first := sugar
	Init()

	assert.NotNil(t, sugar)
	assert.NotSame(t, first, sugar)
}
