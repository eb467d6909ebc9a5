// internal/eventlog/eventlog.go

// Package eventlog persists detected chirp events. Stores consume an
// event channel until it is closed, matching the single-pass lifecycle
// of a detection run.
package eventlog

import (
	"context"
	"time"
)

// Event is one detected chirp with run metadata.
type Event struct {
	// RunID identifies the detection run that produced the event.
	RunID string
	// Length is the chirp length in samples.
	Length int
	// Offset is the chirp start relative to the stream start.
	Offset time.Duration
	// DetectedAt is the wall-clock time the end transition was seen.
	DetectedAt time.Time
}

// Store persists events. Write drains the channel until it is closed
// and returns only setup errors; per-event failures are logged and
// skipped so a slow or flaky store never stalls detection.
type Store interface {
	Write(ctx context.Context, events <-chan Event) error
}
