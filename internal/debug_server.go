package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one rendered run record in the debug view.
type InspectRow struct {
	Key      string
	Room     string
	At       string
	Token    string
	Language string
	Status   string
	Output   string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves a read-only HTML view over the run history DB. It
// is a development aid, bound only when a debug port is configured; the JSON
// API stays the production surface.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "run:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}

		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// runRecordView mirrors the stored run record shape without importing the
// storage package, so this package stays a leaf.
type runRecordView struct {
	Token      string `json:"token"`
	LanguageID int    `json:"language_id"`
	Status     string `json:"status"`
	Output     string `json:"output"`
}

// DefaultMapper decodes a "run:{room}:{timestamp}:{uuid}" entry. Entries that
// do not decode still render, from the key alone.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:      key,
		Room:     "-",
		At:       "--:--:--",
		Token:    "-",
		Language: "-",
		Status:   "RAW",
		Output:   "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	if len(parts) >= 4 {
		row.Room = parts[1]
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.At = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
	}

	var rec runRecordView
	if err := json.Unmarshal(val, &rec); err != nil {
		return row
	}
	row.Token = rec.Token
	row.Language = strconv.Itoa(rec.LanguageID)
	row.Status = rec.Status
	row.Output = rec.Output
	if len(row.Output) > 80 {
		row.Output = row.Output[:80] + "..."
	}
	return row
}
