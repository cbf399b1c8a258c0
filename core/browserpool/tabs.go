package browserpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Tabs maps caller-supplied page IDs onto live Rod pages, adapted from
// the teacher's browser.Tab/OpenTab (stealth level dropped: locate acts
// on pages its caller already navigated to, not scrape targets it must
// disguise itself from).
type Tabs struct {
	pool *Pool

	mu    sync.Mutex
	pages map[string]*rod.Page
}

// NewTabs builds a Tabs registry backed by pool.
func NewTabs(pool *Pool) *Tabs {
	return &Tabs{pool: pool, pages: make(map[string]*rod.Page)}
}

// Get returns the page registered under pageID, creating and navigating
// one to url if none exists yet. An empty url with no existing page is
// an error: the first call for a pageID must supply one.
func (t *Tabs) Get(ctx context.Context, pageID, url string) (*rod.Page, error) {
	t.mu.Lock()
	page, ok := t.pages[pageID]
	t.mu.Unlock()
	if ok {
		return page, nil
	}

	if url == "" {
		return nil, fmt.Errorf("browserpool: no open page %q and no url to navigate", pageID)
	}

	b := t.pool.Browser()
	if b == nil {
		return nil, fmt.Errorf("browserpool: no active browser")
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browserpool: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("browserpool: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		t.pool.cfg.Logger.Warn("browserpool: wait load timeout", "url", url, "error", err)
	}

	t.mu.Lock()
	t.pages[pageID] = page
	t.mu.Unlock()
	return page, nil
}

// Close closes and forgets the page registered under pageID, if any.
func (t *Tabs) Close(pageID string) error {
	t.mu.Lock()
	page, ok := t.pages[pageID]
	delete(t.pages, pageID)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return page.Close()
}
