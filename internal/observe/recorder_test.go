package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapRecorder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := NewZapRecorder(zap.New(core))

	rec.RecordEvent(EventAuthSuccess, map[string]any{"username": "admin", "kind": "user"})
	rec.RecordEvent(EventAuthFailure, map[string]any{"username": "ghost", "reason": "not_found"})

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, EventAuthSuccess, entries[0].Message)
	assert.Equal(t, "admin", entries[0].ContextMap()["username"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "not_found", entries[1].ContextMap()["reason"])
}

func TestMemory(t *testing.T) {
	var m Memory
	m.RecordEvent(EventSyncPush, nil)
	m.RecordEvent(EventSyncPull, nil)
	assert.Equal(t, []string{EventSyncPush, EventSyncPull}, m.Kinds())

	// must not panic
	Nop.RecordEvent(EventSyncPush, map[string]any{"x": 1})
}
