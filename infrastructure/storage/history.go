package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"codecollab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// RunRecord is one completed execution kept for later display.
type RunRecord struct {
	ID         uuid.UUID               `json:"id"`
	Room       domain.RoomID           `json:"room"`
	Token      string                  `json:"token"`
	LanguageID int                     `json:"language_id"`
	SourceCode string                  `json:"source_code"`
	Status     domain.SubmissionStatus `json:"status"`
	Output     string                  `json:"output"`
	At         time.Time               `json:"at"`
}

// RunHistory persists finished runs in BadgerDB.
// The key is formatted as "run:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two runs
//     finish at the same nanosecond.
type RunHistory struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRunHistory(db *badger.DB, log *slog.Logger) RunHistory {
	return RunHistory{db: db, log: log}
}

func (h RunHistory) Record(rec RunRecord) error {
	key := fmt.Sprintf("run:%s:%019d:%s", rec.Room, rec.At.UnixNano(), rec.ID)
	bytes, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ListByRoom returns a room's runs oldest first. The padded timestamp in the
// key makes the prefix scan come back already sorted.
func (h RunHistory) ListByRoom(room domain.RoomID) ([]RunRecord, error) {
	var records []RunRecord
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("run:%s:", room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec RunRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					h.log.Warn("Skipping undecodable run record", "key", string(it.Item().Key()), "error", err)
					return nil
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}
