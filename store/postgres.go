package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmtroyer/auctioneye/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS seen_items (
	id TEXT PRIMARY KEY,
	first_seen_at TIMESTAMPTZ NOT NULL
);`

// PostgresStore keeps seen ids in PostgreSQL, for deployments that already
// run an external database instead of a local file.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database described by dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Init creates the seen_items table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create seen_items schema: %w", err)
	}
	return nil
}

// SeenIDs returns the set of every recorded listing id.
func (s *PostgresStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM seen_items")
	if err != nil {
		return nil, fmt.Errorf("load seen ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen id: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen ids: %w", err)
	}
	return seen, nil
}

// AddSeenIDs inserts the ids not already present in one batch and returns
// the number of rows actually inserted.
func (s *PostgresStore) AddSeenIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(
			"INSERT INTO seen_items (id, first_seen_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
			id, now,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range ids {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("insert seen ids: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ClearAll removes every seen record.
func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM seen_items"); err != nil {
		return fmt.Errorf("clear seen items: %w", err)
	}
	return nil
}

// Records returns every seen record ordered by id, for inspection and tests.
func (s *PostgresStore) Records(ctx context.Context) ([]models.SeenRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, first_seen_at FROM seen_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load seen records: %w", err)
	}
	defer rows.Close()

	var records []models.SeenRecord
	for rows.Next() {
		var (
			id        string
			firstSeen time.Time
		)
		if err := rows.Scan(&id, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan seen record: %w", err)
		}
		records = append(records, models.SeenRecord{
			ID:          id,
			FirstSeenAt: firstSeen.UTC().Format(time.RFC3339),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen records: %w", err)
	}
	return records, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
