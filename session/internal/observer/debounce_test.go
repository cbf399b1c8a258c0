package observer

import (
	"testing"
	"time"
)

func TestDebouncerFlushesOnBufferFull(t *testing.T) {
	var flushed []Event
	d := New(Config{Window: time.Hour, MaxBuffer: 2}, func(batch []Event) {
		flushed = batch
	})

	d.Add(Event{Key: "/a", Op: "attr"})
	d.Add(Event{Key: "/b", Op: "attr"})

	if len(flushed) != 2 {
		t.Fatalf("expected immediate flush at MaxBuffer, got %d events", len(flushed))
	}
}

func TestDebouncerDropsDuplicateWithinTolerance(t *testing.T) {
	var flushed []Event
	d := New(Config{Window: time.Hour, MaxBuffer: 100}, func(batch []Event) {
		flushed = batch
	})

	now := time.Now()
	d.Add(Event{Key: "/a", Op: "attr", At: now})
	d.Add(Event{Key: "/a", Op: "attr", At: now.Add(10 * time.Millisecond)})
	d.Flush()

	if len(flushed) != 1 {
		t.Fatalf("expected duplicate event within tolerance to be dropped, got %d", len(flushed))
	}
}

func TestDebouncerKeepsDistinctKeys(t *testing.T) {
	var flushed []Event
	d := New(Config{Window: time.Hour, MaxBuffer: 100}, func(batch []Event) {
		flushed = batch
	})

	now := time.Now()
	d.Add(Event{Key: "/a", Op: "attr", At: now})
	d.Add(Event{Key: "/b", Op: "attr", At: now})
	d.Flush()

	if len(flushed) != 2 {
		t.Fatalf("expected both distinct keys kept, got %d", len(flushed))
	}
}

func TestDebouncerManualFlushIsNoOpWhenEmpty(t *testing.T) {
	called := false
	d := New(Config{}, func(batch []Event) { called = true })
	d.Flush()
	if called {
		t.Fatal("expected no flush callback for an empty buffer")
	}
}
