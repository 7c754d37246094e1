package storage

import (
	"log/slog"
	"testing"
	"time"

	"codecollab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) RunHistory {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunHistory(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func record(room domain.RoomID, output string, at time.Time) RunRecord {
	return RunRecord{
		ID:         uuid.New(),
		Room:       room,
		Token:      uuid.NewString(),
		LanguageID: 71,
		SourceCode: `print("1")`,
		Status:     domain.SubmissionDone,
		Output:     output,
		At:         at,
	}
}

func TestRunHistory_ListByRoomOldestFirst(t *testing.T) {
	req := require.New(t)
	history := newTestHistory(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	// Recorded out of order on purpose.
	req.NoError(history.Record(record("room-1", "third", base.Add(2*time.Hour))))
	req.NoError(history.Record(record("room-1", "first", base)))
	req.NoError(history.Record(record("room-1", "second", base.Add(time.Hour))))

	records, err := history.ListByRoom("room-1")
	req.NoError(err)
	req.Len(records, 3)
	req.Equal("first", records[0].Output)
	req.Equal("second", records[1].Output)
	req.Equal("third", records[2].Output)
}

func TestRunHistory_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	history := newTestHistory(t)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	req.NoError(history.Record(record("room-1", "mine", at)))
	req.NoError(history.Record(record("room-2", "theirs", at)))

	records, err := history.ListByRoom("room-1")
	req.NoError(err)
	req.Len(records, 1)
	req.Equal("mine", records[0].Output)
}

func TestRunHistory_SameInstantRunsBothKept(t *testing.T) {
	req := require.New(t)
	history := newTestHistory(t)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	req.NoError(history.Record(record("room-1", "a", at)))
	req.NoError(history.Record(record("room-1", "b", at)))

	records, err := history.ListByRoom("room-1")
	req.NoError(err)
	req.Len(records, 2)
}

func TestRunHistory_EmptyRoom(t *testing.T) {
	req := require.New(t)
	history := newTestHistory(t)

	records, err := history.ListByRoom("ghost-room")
	req.NoError(err)
	req.Empty(records)
}
