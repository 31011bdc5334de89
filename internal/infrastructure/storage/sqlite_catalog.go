package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"PaperCast/internal/domain"
)

const catalogSchema = `CREATE TABLE IF NOT EXISTS papers (
	id             TEXT PRIMARY KEY,
	query          TEXT NOT NULL,
	url            TEXT NOT NULL,
	title          TEXT NOT NULL,
	summary        TEXT NOT NULL,
	authors        TEXT NOT NULL,
	published_date TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	title_zh       TEXT NOT NULL,
	summary_zh     TEXT NOT NULL,
	applications   TEXT NOT NULL,
	pitch          TEXT NOT NULL,
	audio          TEXT NOT NULL,
	degraded       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS papers_query_timestamp ON papers (query, timestamp);`

var catalogColumns = []string{
	"id", "query", "url", "title", "summary", "authors", "published_date", "timestamp",
	"title_zh", "summary_zh", "applications", "pitch", "audio", "degraded",
}

// Catalog mirrors the record log into SQLite so it can be queried.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the database at path and bootstraps the schema.
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.Fail(domain.ErrStorage, "create catalog dir", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.Fail(domain.ErrStorage, "open catalog", err)
	}
	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		_ = db.Close()
		return nil, domain.Fail(domain.ErrStorage, "bootstrap catalog schema", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Sync upserts every record and returns how many rows were written.
func (c *Catalog) Sync(ctx context.Context, records []domain.Record) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Fail(domain.ErrStorage, "begin catalog sync", err)
	}

	written := 0
	for _, r := range records {
		if err := upsertRecord(ctx, tx, r); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.Fail(domain.ErrStorage, "commit catalog sync", err)
	}
	return written, nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, r domain.Record) error {
	authors, err := json.Marshal(r.Authors)
	if err != nil {
		return domain.Fail(domain.ErrStorage, "encode authors", err)
	}
	apps, err := json.Marshal(r.Applications)
	if err != nil {
		return domain.Fail(domain.ErrStorage, "encode applications", err)
	}

	query, args, err := sq.Insert("papers").
		Columns(catalogColumns...).
		Values(r.ID, r.Query, r.URL, r.Title, r.Summary, string(authors), r.PublishedDate, r.Timestamp,
			r.TitleZh, r.SummaryZh, string(apps), r.Pitch, r.Audio, r.Degraded).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			query = excluded.query,
			title_zh = excluded.title_zh,
			summary_zh = excluded.summary_zh,
			applications = excluded.applications,
			pitch = excluded.pitch,
			audio = excluded.audio,
			timestamp = excluded.timestamp,
			degraded = excluded.degraded`).
		ToSql()
	if err != nil {
		return domain.Fail(domain.ErrStorage, "build upsert", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return domain.Fail(domain.ErrStorage, fmt.Sprintf("upsert %s", r.ID), err)
	}
	return nil
}

// Recent returns the newest records, optionally restricted to one topic.
func (c *Catalog) Recent(ctx context.Context, topic string, limit int) ([]domain.Record, error) {
	builder := sq.Select(catalogColumns...).From("papers").OrderBy("timestamp DESC", "id")
	if topic != "" {
		builder = builder.Where(sq.Eq{"query": topic})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, domain.Fail(domain.ErrStorage, "build recent query", err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Fail(domain.ErrStorage, "query catalog", err)
	}

	var result []domain.Record
	for rows.Next() {
		var (
			r             domain.Record
			authors, apps string
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.URL, &r.Title, &r.Summary, &authors, &r.PublishedDate,
			&r.Timestamp, &r.TitleZh, &r.SummaryZh, &apps, &r.Pitch, &r.Audio, &r.Degraded); err != nil {
			_ = rows.Close()
			return nil, domain.Fail(domain.ErrStorage, "scan catalog row", err)
		}
		if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
			_ = rows.Close()
			return nil, domain.Fail(domain.ErrStorage, "decode authors", err)
		}
		if err := json.Unmarshal([]byte(apps), &r.Applications); err != nil {
			_ = rows.Close()
			return nil, domain.Fail(domain.ErrStorage, "decode applications", err)
		}
		result = append(result, r)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, domain.Fail(domain.ErrStorage, "iterate catalog rows", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, domain.Fail(domain.ErrStorage, "close catalog rows", closeErr)
	}
	return result, nil
}
