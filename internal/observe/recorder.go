package observe

import (
	"sort"

	"go.uber.org/zap"
)

// Event kinds.
const (
	EventAuthSuccess   = "auth.success"
	EventAuthFailure   = "auth.failure"
	EventTokenRefresh  = "token.refresh"
	EventLogout        = "auth.logout"
	EventAlertCreated  = "alert.created"
	EventAlertResolved = "alert.resolved"
	EventSyncPush      = "sync.push"
	EventSyncPull      = "sync.pull"
	EventConfigUpdated = "config.updated"
)

// Recorder receives domain events from the core components.
type Recorder interface {
	RecordEvent(kind string, fields map[string]any)
}

// Nop discards every event.
var Nop Recorder = nopRecorder{}

type nopRecorder struct{}

func (nopRecorder) RecordEvent(string, map[string]any) {}

type zapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder writes each event as a structured log line.
func NewZapRecorder(logger *zap.Logger) Recorder {
	return &zapRecorder{logger: logger.Named("events")}
}

func (r *zapRecorder) RecordEvent(kind string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zfields := make([]zap.Field, 0, len(fields)+1)
	zfields = append(zfields, zap.String("event", kind))
	for _, k := range keys {
		zfields = append(zfields, zap.Any(k, fields[k]))
	}

	if kind == EventAuthFailure {
		r.logger.Warn(kind, zfields...)
		return
	}
	r.logger.Info(kind, zfields...)
}

// Memory keeps events in memory. Tests use it to assert on emitted events.
type Memory struct {
	Events []RecordedEvent
}

// RecordedEvent is one event captured by Memory.
type RecordedEvent struct {
	Kind   string
	Fields map[string]any
}

func (m *Memory) RecordEvent(kind string, fields map[string]any) {
	m.Events = append(m.Events, RecordedEvent{Kind: kind, Fields: fields})
}

// Kinds returns the recorded event kinds in order.
func (m *Memory) Kinds() []string {
	kinds := make([]string, len(m.Events))
	for i, e := range m.Events {
		kinds[i] = e.Kind
	}
	return kinds
}
