// Command badger_inspect dumps the run history DB as a table, for poking at
// a database file without starting the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"codecollab/execution"
	"codecollab/infrastructure/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "/tmp/codecollab/badger", "Path to badger DB")
	prefix := flag.String("prefix", "run:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "At", "Token", "Language", "Status", "Output"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var rec storage.RunRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				output := strings.ReplaceAll(rec.Output, "\n", " ")
				if len(output) > 60 {
					output = output[:60] + "..."
				}

				// Only the first 8 characters of the token, for readability
				displayToken := rec.Token
				if len(displayToken) > 8 {
					displayToken = displayToken[:8]
				}

				language := strconv.Itoa(rec.LanguageID)
				if name, ok := execution.LanguageName(rec.LanguageID); ok {
					language = name
				}

				table.Append([]string{
					string(item.Key()),
					string(rec.Room),
					rec.At.UTC().Format(time.TimeOnly),
					displayToken,
					language,
					string(rec.Status),
					output,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
