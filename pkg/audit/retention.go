package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner is implemented by loggers that support expiring old entries.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper periodically removes audit events past the retention
// window.
type RetentionSweeper struct {
	pruner    Pruner
	retention time.Duration
	cron      *cron.Cron
	onSweep   func(removed int64, err error)
}

// NewRetentionSweeper creates a sweeper for the given pruner. onSweep is
// invoked after each run with the outcome; pass nil to ignore.
func NewRetentionSweeper(pruner Pruner, retention time.Duration, onSweep func(removed int64, err error)) *RetentionSweeper {
	return &RetentionSweeper{
		pruner:    pruner,
		retention: retention,
		cron:      cron.New(),
		onSweep:   onSweep,
	}
}

// Start schedules the sweep on the given cron spec (e.g. "@daily") and
// begins running it.
func (s *RetentionSweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *RetentionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	removed, err := s.pruner.DeleteBefore(ctx, cutoff)
	if s.onSweep != nil {
		s.onSweep(removed, err)
	}
}
