package promote

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordSuccessThenLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordSuccess(ctx, "example.com", "click submit", "[data-testid=\"submit\"]", "semantic"); err != nil {
		t.Fatal(err)
	}

	cands, err := s.Lookup(ctx, "example.com", "click submit", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
}

func TestLowConfidenceCandidateExcludedFromLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := s.RecordFailure(ctx, "example.com", "q", "sel", "semantic"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordSuccess(ctx, "example.com", "q", "sel", "semantic"); err != nil {
		t.Fatal(err)
	}

	cands, err := s.Lookup(ctx, "example.com", "q", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected mostly-failing selector to fall below conf_min, got %+v", cands)
	}
}

func TestLookupOrdersByConfidenceDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		s.RecordSuccess(ctx, "example.com", "q", "good", "semantic")
	}
	for i := 0; i < 12; i++ {
		if i < 8 {
			s.RecordSuccess(ctx, "example.com", "q", "ok", "semantic")
		} else {
			s.RecordFailure(ctx, "example.com", "q", "ok", "semantic")
		}
	}

	cands, err := s.Lookup(ctx, "example.com", "q", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 || cands[0].Selector != "good" {
		t.Fatalf("expected good selector ranked first, got %+v", cands)
	}
}

func TestModeKeyNamespacesResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordSuccess(ctx, "example.com", "q", "sel", "semantic")

	cands, err := s.Lookup(ctx, "example.com", "q", "no-semantic")
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected mode_key isolation, got %+v", cands)
	}
}

func TestPruneStaleRemovesOldRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordSuccess(ctx, "example.com", "q", "sel", "semantic")
	// Force last_used into the past directly.
	if _, err := s.db.ExecContext(ctx, `UPDATE promotions SET last_used = 0`); err != nil {
		t.Fatal(err)
	}

	n, err := s.PruneStale(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row pruned, got %d", n)
	}
}
