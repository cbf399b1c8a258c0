package snapshot

import (
	"context"
	"time"
)

// stabilityState is a small explicit state machine, grounded on the design
// note that await-loops should be modeled as states rather than hidden
// recursion: Watching (no quiesce signal yet) -> Stable (quiesce window
// elapsed) -> TimedOut (capture_timeout_ms elapsed first).
type stabilityState int

const (
	stateWatching stabilityState = iota
	stateStable
	stateTimedOut
)

// stabilityWaiter blocks until the DOM node count has not changed for
// stableWindow, no network activity is pending, and no layout shift has
// been observed in that window — or captureTimeout elapses first.
type stabilityWaiter struct {
	stableWindow    time.Duration
	captureTimeout  time.Duration
	nodeCountFn     func() int
	networkIdleFn   func(since time.Time) bool
	layoutStableFn  func(since time.Time) bool
	pollInterval    time.Duration
}

func newStabilityWaiter(stableWindow, captureTimeout time.Duration, nodeCountFn func() int, networkIdleFn, layoutStableFn func(since time.Time) bool) *stabilityWaiter {
	return &stabilityWaiter{
		stableWindow:   stableWindow,
		captureTimeout: captureTimeout,
		nodeCountFn:    nodeCountFn,
		networkIdleFn:  networkIdleFn,
		layoutStableFn: layoutStableFn,
		pollInterval:   50 * time.Millisecond,
	}
}

// wait runs the watcher loop and returns stateStable once quiesced, or
// stateTimedOut when captureTimeout (or ctx) ends before quiescence.
func (w *stabilityWaiter) wait(ctx context.Context) (state stabilityState) {
	deadline := time.Now().Add(w.captureTimeout)
	lastCount := w.nodeCountFn()
	lastChange := time.Now()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stateTimedOut
		case now := <-ticker.C:
			if now.After(deadline) {
				return stateTimedOut
			}
			count := w.nodeCountFn()
			if count != lastCount {
				lastCount = count
				lastChange = now
				continue
			}
			quiesced := now.Sub(lastChange) >= w.stableWindow
			if quiesced && w.networkIdleFn(lastChange) && w.layoutStableFn(lastChange) {
				return stateStable
			}
		}
	}
}
