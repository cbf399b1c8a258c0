package session

import (
	"testing"

	"github.com/locatehq/locate/snapshot"
)

func TestShouldReindexOnFirstSnapshot(t *testing.T) {
	ps := New(Config{}).Ensure("page-1")
	ok, reason := ps.ShouldReindex("hash-a", 10)
	if !ok || reason != ReasonHashChange {
		t.Fatalf("expected first snapshot to force reindex, got %v %v", ok, reason)
	}
}

func TestShouldReindexOnRouteChange(t *testing.T) {
	ps := New(Config{}).Ensure("page-1")
	ps.Push(snapshot.Snapshot{SnapshotID: "hash-a", Frames: []snapshot.FrameSnapshot{{Elements: make([]snapshot.ElementDescriptor, 10)}}})
	ps.MarkRouteChange()

	ok, reason := ps.ShouldReindex("hash-a", 10)
	if !ok || reason != ReasonRoute {
		t.Fatalf("expected route change to force reindex, got %v %v", ok, reason)
	}
}

func TestShouldReindexOnHashChange(t *testing.T) {
	ps := New(Config{}).Ensure("page-1")
	ps.Push(snapshot.Snapshot{SnapshotID: "hash-a", Frames: []snapshot.FrameSnapshot{{Elements: make([]snapshot.ElementDescriptor, 10)}}})

	ok, reason := ps.ShouldReindex("hash-b", 10)
	if !ok || reason != ReasonHashChange {
		t.Fatalf("expected hash change to force reindex, got %v %v", ok, reason)
	}
}

func TestShouldReindexOnLargeNodeDelta(t *testing.T) {
	ps := New(Config{}).Ensure("page-1")
	ps.Push(snapshot.Snapshot{SnapshotID: "hash-a", Frames: []snapshot.FrameSnapshot{{Elements: make([]snapshot.ElementDescriptor, 100)}}})

	// 35% fewer nodes, same hash (hash is opaque here, only count matters).
	ok, reason := ps.ShouldReindex("hash-a", 65)
	if !ok || reason != ReasonNodeDelta {
		t.Fatalf("expected node-count delta to force reindex, got %v %v", ok, reason)
	}
}

func TestShouldNotReindexOnSmallDelta(t *testing.T) {
	ps := New(Config{}).Ensure("page-1")
	ps.Push(snapshot.Snapshot{SnapshotID: "hash-a", Frames: []snapshot.FrameSnapshot{{Elements: make([]snapshot.ElementDescriptor, 100)}}})

	ok, _ := ps.ShouldReindex("hash-a", 95)
	if ok {
		t.Fatal("expected small node-count delta to not force reindex")
	}
}

func TestPushTrimsToSnapKeep(t *testing.T) {
	m := New(Config{SnapKeep: 2})
	ps := m.Ensure("page-1")

	ps.Push(snapshot.Snapshot{SnapshotID: "a"})
	ps.Push(snapshot.Snapshot{SnapshotID: "b"})
	ps.Push(snapshot.Snapshot{SnapshotID: "c"})

	recent := ps.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected ring buffer capped at 2, got %d", len(recent))
	}
	if recent[0].SnapshotID != "b" || recent[1].SnapshotID != "c" {
		t.Fatalf("expected [b, c], got %+v", recent)
	}
}

func TestEnsureReturnsSameSessionForSamePage(t *testing.T) {
	m := New(Config{})
	a := m.Ensure("page-1")
	b := m.Ensure("page-1")
	if a != b {
		t.Fatal("expected Ensure to return the same PageSession for the same page id")
	}
}

func TestShouldReindexTalliesStats(t *testing.T) {
	m := New(Config{})
	ps := m.Ensure("page-1")

	ps.ShouldReindex("hash-a", 10) // first snapshot: forces reindex
	ps.Push(snapshot.Snapshot{SnapshotID: "hash-a", Frames: []snapshot.FrameSnapshot{{Elements: make([]snapshot.ElementDescriptor, 10)}}})
	ps.ShouldReindex("hash-a", 10) // unchanged: no reindex

	stats := ps.Stats()
	if stats.DecisionCount != 2 {
		t.Fatalf("expected 2 decisions, got %d", stats.DecisionCount)
	}
	if stats.ReindexCount != 1 {
		t.Fatalf("expected 1 reindex, got %d", stats.ReindexCount)
	}
	if stats.LastReason != ReasonNone {
		t.Fatalf("expected last reason %q, got %q", ReasonNone, stats.LastReason)
	}

	all := m.Stats()
	if len(all) != 1 || all[0].PageID != "page-1" {
		t.Fatalf("expected one page-1 entry from Manager.Stats, got %+v", all)
	}
}
