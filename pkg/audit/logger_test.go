package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBLoggerLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	actorID := int64(7)
	tenantID := int64(3)
	event := NewEvent(EventTypeGrantTenant, EventStatusSuccess)
	event.ActorID = &actorID
	event.TenantID = &tenantID
	event.ModuleSlug = "notes"
	event.Metadata = map[string]interface{}{"permissions": []string{"read"}}

	mock.ExpectQuery("INSERT INTO audit_events").
		WithArgs(
			sqlmock.AnyArg(), string(EventTypeGrantTenant), string(EventStatusSuccess),
			actorID, tenantID, nil, "notes",
			nil, nil, nil, nil, nil, sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, logger.Log(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLoggerDeleteBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	cutoff := time.Now().Add(-90 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM audit_events WHERE timestamp").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	removed, err := logger.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.ndjson")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	for _, eventType := range []EventType{EventTypeGrantMember, EventTypeAccessDenied} {
		event := NewEvent(eventType, EventStatusSuccess)
		event.ModuleSlug = "notes"
		require.NoError(t, logger.Log(context.Background(), event))
	}
	require.NoError(t, logger.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		assert.Equal(t, "notes", event.ModuleSlug)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines)
}

type stubLogger struct {
	events []*Event
	err    error
}

func (s *stubLogger) Log(ctx context.Context, event *Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubLogger) Close() error { return s.err }

func TestMultiLogger(t *testing.T) {
	t.Run("fans out to all destinations", func(t *testing.T) {
		a, b := &stubLogger{}, &stubLogger{}
		multi := NewMultiLogger(a, b)

		require.NoError(t, multi.Log(context.Background(), NewEvent(EventTypeGrantTenant, EventStatusSuccess)))
		assert.Len(t, a.events, 1)
		assert.Len(t, b.events, 1)
	})

	t.Run("one failing destination does not stop the others", func(t *testing.T) {
		broken := &stubLogger{err: errors.New("disk full")}
		healthy := &stubLogger{}
		multi := NewMultiLogger(broken, healthy)

		err := multi.Log(context.Background(), NewEvent(EventTypeGrantTenant, EventStatusSuccess))
		assert.Error(t, err)
		assert.Len(t, healthy.events, 1)
	})
}

type stubPruner struct {
	cutoffs chan time.Time
}

func (s *stubPruner) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs <- cutoff
	return 5, nil
}

func TestRetentionSweeper(t *testing.T) {
	pruner := &stubPruner{cutoffs: make(chan time.Time, 8)}
	swept := make(chan int64, 8)

	sweeper := NewRetentionSweeper(pruner, 24*time.Hour, func(removed int64, err error) {
		require.NoError(t, err)
		swept <- removed
	})
	require.NoError(t, sweeper.Start("@every 100ms"))
	defer sweeper.Stop()

	select {
	case cutoff := <-pruner.cutoffs:
		// Cutoff is now minus the retention window
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), cutoff, time.Minute)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep never ran")
	}

	select {
	case removed := <-swept:
		assert.Equal(t, int64(5), removed)
	case <-time.After(5 * time.Second):
		t.Fatal("onSweep never invoked")
	}
}

func TestRetentionSweeperBadSpec(t *testing.T) {
	sweeper := NewRetentionSweeper(&stubPruner{cutoffs: make(chan time.Time, 1)}, time.Hour, nil)
	assert.Error(t, sweeper.Start("not a cron spec"))
}
