package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sebastian/internal/components/chrono"
	"sebastian/lib/ledger/db"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is a completed download.
type Entry struct {
	SourceUrl    string
	Path         string
	Bytes        int64
	DownloadedAt time.Time
}

// Ledger remembers which items were already downloaded so that later runs
// can skip them.
type Ledger struct {
	db    *sql.DB
	qry   *db.Queries
	clock chrono.API
}

// Open opens (creating it if needed) the ledger at `path`, ":memory:" keeps
// it in memory.
func Open(path string, clock chrono.API) (*Ledger, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" is a separate database
	sqlite.SetMaxOpenConns(1)

	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		sqlite.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	if clock == nil {
		clock = chrono.NewStandardImpl(nil)
	}
	return &Ledger{
		db:    sqlite,
		qry:   db.New(sqlite),
		clock: clock,
	}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func fromRow(row db.Download) Entry {
	return Entry{
		SourceUrl:    row.SourceUrl,
		Path:         row.Path,
		Bytes:        row.Bytes,
		DownloadedAt: time.Unix(row.DownloadedAt, 0),
	}
}

// Get returns the entry of `sourceUrl`, if there is one.
func (l *Ledger) Get(ctx context.Context, sourceUrl string) (Entry, bool, error) {
	row, err := l.qry.GetDownload(ctx, sourceUrl)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return fromRow(row), true, nil
}

// Record stores `entry`, replacing a previous entry for the same url. A zero
// DownloadedAt is set to the current time.
func (l *Ledger) Record(ctx context.Context, entry Entry) error {
	if entry.DownloadedAt.IsZero() {
		entry.DownloadedAt = l.clock.Now()
	}
	return l.qry.UpsertDownload(ctx, db.Download{
		SourceUrl:    entry.SourceUrl,
		Path:         entry.Path,
		Bytes:        entry.Bytes,
		DownloadedAt: entry.DownloadedAt.Unix(),
	})
}

// List returns every entry, oldest first.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.qry.ListDownloads(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = fromRow(r)
	}
	return entries, nil
}
