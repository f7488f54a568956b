package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Download struct {
	SourceUrl    string
	Path         string
	Bytes        int64
	DownloadedAt int64
}

const getDownload = `select source_url, path, bytes, downloaded_at from download
where source_url = ?`

func (q *Queries) GetDownload(ctx context.Context, sourceUrl string) (Download, error) {
	row := q.db.QueryRowContext(ctx, getDownload, sourceUrl)
	var d Download
	err := row.Scan(&d.SourceUrl, &d.Path, &d.Bytes, &d.DownloadedAt)
	return d, err
}

const upsertDownload = `insert into download (source_url, path, bytes, downloaded_at)
values (?, ?, ?, ?)
on conflict (source_url) do update set
    path = excluded.path,
    bytes = excluded.bytes,
    downloaded_at = excluded.downloaded_at`

func (q *Queries) UpsertDownload(ctx context.Context, arg Download) error {
	_, err := q.db.ExecContext(ctx, upsertDownload, arg.SourceUrl, arg.Path, arg.Bytes, arg.DownloadedAt)
	return err
}

const listDownloads = `select source_url, path, bytes, downloaded_at from download
order by downloaded_at, source_url`

func (q *Queries) ListDownloads(ctx context.Context) ([]Download, error) {
	rows, err := q.db.QueryContext(ctx, listDownloads)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Download
	for rows.Next() {
		var d Download
		err := rows.Scan(&d.SourceUrl, &d.Path, &d.Bytes, &d.DownloadedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
