// Package netwatch tracks in-flight network requests on a CDP page so the
// snapshot stability waiter can confirm "no pending fetch/XHR" before
// declaring the DOM settled. Grounded on the CDP event-subscription idiom
// the session observer uses for DOM mutation events, applied here to the
// Network domain instead.
package netwatch

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Watcher tracks requests that have been sent but not yet resolved
// (finished or failed).
type Watcher struct {
	mu      sync.Mutex
	pending map[proto.NetworkRequestID]time.Time
}

// New enables the Network domain, subscribes to requestWillBeSent /
// loadingFinished / loadingFailed, and returns a Watcher tracking
// in-flight requests.
func New(page *rod.Page) *Watcher {
	w := &Watcher{pending: make(map[proto.NetworkRequestID]time.Time)}

	_ = proto.NetworkEnable{}.Call(page)

	page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		w.mu.Lock()
		w.pending[e.RequestID] = time.Now()
		w.mu.Unlock()
	}, func(e *proto.NetworkLoadingFinished) {
		w.mu.Lock()
		delete(w.pending, e.RequestID)
		w.mu.Unlock()
	}, func(e *proto.NetworkLoadingFailed) {
		w.mu.Lock()
		delete(w.pending, e.RequestID)
		w.mu.Unlock()
	})()

	return w
}

// Idle reports whether no request is currently outstanding. The since
// parameter is accepted for symmetry with layoutwatch's stability check
// but unused: any unresolved request, regardless of when it started,
// means the page is not network-idle.
func (w *Watcher) Idle(since time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) == 0
}
