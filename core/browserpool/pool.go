// Package browserpool manages Chrome's lifecycle for the locator
// pipeline: launch, connect, and recycle on memory or uptime thresholds.
// It does not detect a crashed browser or reconnect after one: a failed
// heap check is logged and monitoring carries on. Adapted from the teacher's
// browser.Manager, dropping stealth/Xvfb handling this tool has no need
// for.
package browserpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config controls the pool's Chrome lifecycle.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local headless Chrome via launcher.
	RemoteURL string
	// MemoryLimit in bytes. Recycle Chrome when exceeded. Default 1GB.
	MemoryLimit int64
	// RecycleInterval is Chrome's maximum lifetime. Default 4h.
	RecycleInterval time.Duration
	Logger          *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// RecycleCallback lets callers flush and reconnect around a recycle.
type RecycleCallback struct {
	BeforeRecycle func()
	AfterRecycle  func(browser *rod.Browser)
}

// Pool manages one Chrome instance shared across pages.
type Pool struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
	cb      *RecycleCallback
}

// New creates a Pool. Call Start to launch Chrome.
func New(cfg Config) *Pool {
	cfg.applyDefaults()
	return &Pool{cfg: cfg}
}

// SetRecycleCallback sets the hooks fired around a recycle.
func (p *Pool) SetRecycleCallback(cb *RecycleCallback) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()
}

// Start launches (or connects to) Chrome and starts the memory/uptime
// monitor goroutine.
func (p *Pool) Start(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("browserpool: pool is closed")
	}

	b, err := p.launch(ctx)
	if err != nil {
		return nil, err
	}
	p.browser = b
	p.startAt = time.Now()

	go p.monitorLoop(ctx)
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (p *Pool) Browser() *rod.Browser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.browser
}

// Recycle kills Chrome and restarts it, firing BeforeRecycle/AfterRecycle.
func (p *Pool) Recycle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("browserpool: pool is closed")
	}
	return p.recycleLocked(ctx)
}

// Close shuts down Chrome.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.cleanup()
}

func (p *Pool) launch(ctx context.Context) (*rod.Browser, error) {
	log := p.cfg.Logger

	var wsURL string
	if p.cfg.RemoteURL != "" {
		wsURL = p.cfg.RemoteURL
		log.Info("browserpool: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browserpool: launch: %w", err)
		}
		wsURL = u
		p.lnch = l
		log.Info("browserpool: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browserpool: connect: %w", err)
	}
	return b, nil
}

func (p *Pool) recycleLocked(ctx context.Context) error {
	log := p.cfg.Logger
	log.Info("browserpool: recycling", "uptime", time.Since(p.startAt))

	if p.cb != nil && p.cb.BeforeRecycle != nil {
		p.cb.BeforeRecycle()
	}

	if err := p.cleanup(); err != nil {
		log.Warn("browserpool: cleanup during recycle", "error", err)
	}

	b, err := p.launch(ctx)
	if err != nil {
		return fmt.Errorf("browserpool: relaunch: %w", err)
	}
	p.browser = b
	p.startAt = time.Now()

	if p.cb != nil && p.cb.AfterRecycle != nil {
		p.cb.AfterRecycle(b)
	}

	log.Info("browserpool: recycled successfully")
	return nil
}

func (p *Pool) cleanup() error {
	if p.browser != nil {
		p.browser.Close()
		p.browser = nil
	}
	if p.lnch != nil {
		p.lnch.Cleanup()
		p.lnch = nil
	}
	return nil
}

func (p *Pool) monitorLoop(ctx context.Context) {
	log := p.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			if p.closed || p.browser == nil {
				p.mu.RUnlock()
				return
			}
			startAt := p.startAt
			b := p.browser
			p.mu.RUnlock()

			if time.Since(startAt) > p.cfg.RecycleInterval {
				log.Info("browserpool: recycle interval reached")
				if err := p.Recycle(ctx); err != nil {
					log.Error("browserpool: recycle failed", "error", err)
				}
				continue
			}

			used, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browserpool: heap check failed", "error", err)
				continue
			}
			if used > p.cfg.MemoryLimit {
				log.Info("browserpool: memory limit exceeded", "used", used, "limit", p.cfg.MemoryLimit)
				if err := p.Recycle(ctx); err != nil {
					log.Error("browserpool: recycle failed", "error", err)
				}
			}
		}
	}
}

// jsHeapUsage queries Chrome's JS heap via the first page's Performance
// API as a proxy for overall memory pressure.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("browserpool: no pages for heap check")
	}

	res, err := pages[0].Eval(`() => {
		if (performance.memory) {
			return performance.memory.usedJSHeapSize;
		}
		return 0;
	}`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}
