package snapshot

import (
	"context"
	"testing"
	"time"
)

func TestStabilityWaiterReportsStableOnceQuiesced(t *testing.T) {
	count := 10
	calls := 0
	nodeCountFn := func() int {
		calls++
		if calls < 2 {
			count++
		}
		return count
	}
	always := func(time.Time) bool { return true }

	w := newStabilityWaiter(60*time.Millisecond, 2*time.Second, nodeCountFn, always, always)
	got := w.wait(context.Background())
	if got != stateStable {
		t.Fatalf("wait() = %v, want stateStable", got)
	}
}

func TestStabilityWaiterTimesOutOnPerpetualChurn(t *testing.T) {
	n := 0
	nodeCountFn := func() int {
		n++
		return n // always changing, never settles
	}
	always := func(time.Time) bool { return true }

	w := newStabilityWaiter(50*time.Millisecond, 150*time.Millisecond, nodeCountFn, always, always)
	got := w.wait(context.Background())
	if got != stateTimedOut {
		t.Fatalf("wait() = %v, want stateTimedOut", got)
	}
}

func TestStabilityWaiterWaitsOnPendingNetwork(t *testing.T) {
	count := 5
	nodeCountFn := func() int { return count }

	networkBusyUntil := time.Now().Add(80 * time.Millisecond)
	networkIdle := func(since time.Time) bool { return time.Now().After(networkBusyUntil) }
	layoutStable := func(time.Time) bool { return true }

	w := newStabilityWaiter(30*time.Millisecond, 2*time.Second, nodeCountFn, networkIdle, layoutStable)
	start := time.Now()
	got := w.wait(context.Background())
	if got != stateStable {
		t.Fatalf("wait() = %v, want stateStable", got)
	}
	if time.Since(start) < 80*time.Millisecond {
		t.Fatal("waiter returned stable before network activity settled")
	}
}
