package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func memStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func TestInitIdempotent(t *testing.T) {
	s := memStore(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init should succeed, got %v", err)
	}
}

func TestSeenIDsEmptyOnFreshStore(t *testing.T) {
	s := memStore(t)
	seen, err := s.SeenIDs(context.Background())
	if err != nil {
		t.Fatalf("seen ids: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("seen = %d ids, want 0", len(seen))
	}
}

func TestAddSeenIDsIdempotent(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	first, err := s.AddSeenIDs(ctx, []string{"1", "2"})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first != 2 {
		t.Fatalf("first add inserted %d, want 2", first)
	}

	second, err := s.AddSeenIDs(ctx, []string{"1", "2"})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second != 0 {
		t.Fatalf("second add inserted %d, want 0", second)
	}

	records, err := s.Records(ctx)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want exactly one row per id", len(records))
	}
}

func TestAddSeenIDsCountsOnlyNewRows(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	if _, err := s.AddSeenIDs(ctx, []string{"1"}); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	got, err := s.AddSeenIDs(ctx, []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("mixed add: %v", err)
	}
	if got != 2 {
		t.Fatalf("inserted = %d, want 2", got)
	}

	seen, err := s.SeenIDs(ctx)
	if err != nil {
		t.Fatalf("seen ids: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, ok := seen[id]; !ok {
			t.Fatalf("seen ids missing %q", id)
		}
	}
}

func TestAddSeenIDsEmptyInputSkipsStore(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	s.Close()

	// A closed handle fails any real query, so a successful return proves
	// the empty input never reached the database.
	got, err := s.AddSeenIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty add should not touch the store, got %v", err)
	}
	if got != 0 {
		t.Fatalf("inserted = %d, want 0", got)
	}

	if _, err := s.AddSeenIDs(context.Background(), []string{"1"}); err == nil {
		t.Fatalf("non-empty add on closed store should fail")
	}
}

func TestFirstSeenAtStampedOnceUTC(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	const earlier = "2024-05-01T10:00:00Z"
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO seen_items (id, first_seen_at) VALUES (?, ?)", "1", earlier,
	); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	inserted, err := s.AddSeenIDs(ctx, []string{"1", "2"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}

	records, err := s.Records(ctx)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID != "1" || records[0].FirstSeenAt != earlier {
		t.Fatalf("existing row = %+v, want untouched timestamp %q", records[0], earlier)
	}

	fresh := records[1]
	if !strings.HasSuffix(fresh.FirstSeenAt, "Z") {
		t.Fatalf("first_seen_at = %q, want UTC timestamp", fresh.FirstSeenAt)
	}
	stamp, err := time.Parse(time.RFC3339, fresh.FirstSeenAt)
	if err != nil {
		t.Fatalf("first_seen_at %q not RFC 3339: %v", fresh.FirstSeenAt, err)
	}
	if time.Since(stamp) > time.Minute || time.Since(stamp) < -time.Minute {
		t.Fatalf("first_seen_at = %v, want close to now", stamp)
	}
}

func TestClearAll(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	if _, err := s.AddSeenIDs(ctx, []string{"1", "2", "3"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	seen, err := s.SeenIDs(ctx)
	if err != nil {
		t.Fatalf("seen ids: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("seen = %d ids after clear, want 0", len(seen))
	}
}
