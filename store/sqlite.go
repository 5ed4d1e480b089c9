package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dmtroyer/auctioneye/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seen_items (
	id TEXT PRIMARY KEY,
	first_seen_at TEXT NOT NULL
);`

// SQLiteStore keeps seen ids in an embedded SQLite database file. It is the
// default backend: no external services, a single file that other tools can
// inspect between runs.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens the SQLite database at path, creating parent directories
// and the file itself when missing. WAL journaling keeps the file readable
// while a run is writing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal journal mode: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Init creates the seen_items table when it does not exist yet.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create seen_items schema: %w", err)
	}
	return nil
}

// SeenIDs returns the set of every recorded listing id.
func (s *SQLiteStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM seen_items"); err != nil {
		return nil, fmt.Errorf("load seen ids: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// AddSeenIDs inserts the ids not already present and returns the number of
// rows actually inserted. Rows that exist keep their original timestamp.
func (s *SQLiteStore) AddSeenIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seen ids transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO seen_items (id, first_seen_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
			id, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert seen id %q: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("count inserted rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seen ids: %w", err)
	}
	return inserted, nil
}

// ClearAll removes every seen record.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM seen_items"); err != nil {
		return fmt.Errorf("clear seen items: %w", err)
	}
	return nil
}

// Records returns every seen record ordered by id, for inspection and tests.
func (s *SQLiteStore) Records(ctx context.Context) ([]models.SeenRecord, error) {
	var records []models.SeenRecord
	if err := s.db.SelectContext(ctx, &records, "SELECT id, first_seen_at FROM seen_items ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load seen records: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
