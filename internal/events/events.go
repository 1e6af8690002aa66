// Package events publishes the engine's named lifecycle events for the
// dashboard UI. The payload is counts plus timestamps; the transport is
// pluggable (log output by default, Redis pub/sub when configured).
package events

import (
	"context"
	"time"
)

// Event names emitted over a batch's lifecycle.
const (
	EventBatchCreated   = "batch.created"
	EventBatchStarted   = "batch.started"
	EventBatchProgress  = "batch.progress"
	EventBatchCompleted = "batch.completed"
	EventBatchFailed    = "batch.failed"
	EventRowError       = "row.error"
)

// Event is one lifecycle notification.
type Event struct {
	Name      string    `json:"name"`
	BatchID   string    `json:"batch_id"`
	Source    string    `json:"source,omitempty"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped,omitempty"`
	RowNumber int       `json:"row_number,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Emitter delivers lifecycle events. Implementations must be safe for
// concurrent use; emission failures must not fail the ingestion run.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(_ context.Context, _ Event) {}
