package audit

import (
	"context"
	"errors"
)

// MultiLogger fans every event out to multiple destinations. Writes are
// synchronous: a grant/revoke is authorization-relevant state and the audit
// record should exist before the mutation is acknowledged.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all given destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes the event to every destination, collecting all failures
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every destination
func (m *MultiLogger) Close() error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
