package events

import (
	"context"
	"encoding/json"
	"log"
)

// LogEmitter writes events to the process log. This is the default
// transport when no Redis address is configured.
type LogEmitter struct{}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

// Emit implements Emitter.
func (e *LogEmitter) Emit(_ context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: failed to marshal %s: %v", event.Name, err)
		return
	}
	log.Printf("events: %s", payload)
}
