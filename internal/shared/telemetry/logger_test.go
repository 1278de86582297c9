package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteMapsFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Info("request.complete", map[string]any{"status": 200, "path": "/api/chat"})
	Warn("documents.delete_item_failed", map[string]any{"error": errors.New("disk gone")})
	Error("inference.failure", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "request.complete", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.EqualValues(t, 200, ctx["status"])
	assert.Equal(t, "/api/chat", ctx["path"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk gone", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Empty(t, entries[2].Context)
}

func TestSetLoggerNilDiscards(t *testing.T) {
	prev := L()
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(prev) })

	require.NotNil(t, L())
	Info("dropped", map[string]any{"k": "v"})
}
