package pagecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	page_id          TEXT PRIMARY KEY,
	created_time     TEXT NOT NULL,
	last_edited_time TEXT NOT NULL,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS images (
	image_key  TEXT PRIMARY KEY,
	local_path TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the on-disk cache, one SQLite file per site.
//
// Page tasks write concurrently. The pool is capped at one connection so writes queue up in
// database/sql instead of racing for the file lock.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path. ":memory:" works too.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("pagecache: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("pagecache: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pagecache: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pagecache: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetPage(ctx context.Context, id string) (Entry, bool, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT created_time, last_edited_time FROM pages WHERE page_id = ?`, id,
	).Scan(&e.CreatedTime, &e.LastEditedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("pagecache: get page %s: %w", id, err)
	}
	return e, true, nil
}

func (s *Store) PutPage(ctx context.Context, id string, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (page_id, created_time, last_edited_time, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(page_id) DO UPDATE SET
			created_time = excluded.created_time,
			last_edited_time = excluded.last_edited_time,
			updated_at = CURRENT_TIMESTAMP`,
		id, e.CreatedTime, e.LastEditedTime)
	if err != nil {
		return fmt.Errorf("pagecache: put page %s: %w", id, err)
	}
	return nil
}

func (s *Store) LookupImage(ctx context.Context, key string) (string, bool, error) {
	var p string
	err := s.db.QueryRowContext(ctx,
		`SELECT local_path FROM images WHERE image_key = ?`, key,
	).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pagecache: lookup image %s: %w", key, err)
	}
	return p, true, nil
}

func (s *Store) SaveImage(ctx context.Context, key string, localPath string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (image_key, local_path, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(image_key) DO UPDATE SET
			local_path = excluded.local_path,
			updated_at = CURRENT_TIMESTAMP`,
		key, localPath)
	if err != nil {
		return fmt.Errorf("pagecache: save image %s: %w", key, err)
	}
	return nil
}

// CountPages is used by the summary output.
func (s *Store) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pagecache: count pages: %w", err)
	}
	return n, nil
}
