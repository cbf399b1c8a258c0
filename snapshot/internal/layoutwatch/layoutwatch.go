// Package layoutwatch polls for layout shift the same way the browser
// manager polls Performance metrics for JS heap size: no CDP event gives a
// clean "layout settled" signal, so a lightweight poll against
// window.performance + a small injected shift accumulator stands in.
package layoutwatch

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
)

const pollInterval = 100 * time.Millisecond

// Watcher polls the page for cumulative layout shift and exposes whether
// any shift has occurred since a given timestamp.
type Watcher struct {
	page *rod.Page
	stop chan struct{}

	mu          sync.Mutex
	lastShiftAt time.Time
	cumulative  float64
}

// New starts polling page for layout shift via the injected observer
// script and returns a Watcher. Call Close to stop polling.
func New(page *rod.Page) *Watcher {
	w := &Watcher{page: page, stop: make(chan struct{})}
	if _, err := page.Eval(layoutShiftScript); err == nil {
		go w.poll()
	}
	return w
}

// Stable reports whether no layout shift ≥1px has been observed since
// since.
func (w *Watcher) Stable(since time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastShiftAt.Before(since)
}

// Close stops the polling goroutine.
func (w *Watcher) Close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			res, err := w.page.Eval(`() => window.__locate_cls || 0`)
			if err != nil {
				continue
			}
			cls := res.Value.Num()
			w.mu.Lock()
			if cls > w.cumulative {
				w.cumulative = cls
				w.lastShiftAt = time.Now()
			}
			w.mu.Unlock()
		}
	}
}

// layoutShiftScript accumulates layout-instability entry values into
// window.__locate_cls, the same way a PerformanceObserver would feed a
// real-user-monitoring counter.
const layoutShiftScript = `() => {
	if (window.__locate_cls_installed) return;
	window.__locate_cls_installed = true;
	window.__locate_cls = 0;
	try {
		new PerformanceObserver((list) => {
			for (const entry of list.getEntries()) {
				if (!entry.hadRecentInput) {
					window.__locate_cls += entry.value;
				}
			}
		}).observe({type: 'layout-shift', buffered: true});
	} catch (e) {
		// layout-shift not supported in this engine; __locate_cls stays 0.
	}
}`
