package audit

import (
	"context"
	"time"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered entries
	Close() error
}

// NewEvent builds an event with the timestamp set; callers fill in the rest.
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
}

// NoopLogger discards all events; used when auditing is disabled.
type NoopLogger struct{}

func (NoopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NoopLogger) Close() error                                { return nil }
