package snapshot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/locatehq/locate/snapshot/internal/layoutwatch"
	"github.com/locatehq/locate/snapshot/internal/netwatch"
)

// Config controls a Capturer's behaviour. Every field has a default
// applied in New, matching the defaults() convention used throughout this
// module's configuration structs.
type Config struct {
	StableWindow     time.Duration
	CaptureTimeout   time.Duration
	Logger           *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.StableWindow <= 0 {
		c.StableWindow = 500 * time.Millisecond
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capturer captures Snapshots from a live CDP page.
type Capturer struct {
	cfg Config
}

// New returns a Capturer with defaults applied over cfg.
func New(cfg Config) *Capturer {
	cfg.applyDefaults()
	return &Capturer{cfg: cfg}
}

// Capture blocks until the page's DOM is stable (or capture_timeout_ms
// elapses) and returns a normalized Snapshot. It recurses into every
// same-origin frame reachable through the flattened DOM, and includes
// cross-origin frame placeholders with CrossOrigin=true.
func (c *Capturer) Capture(ctx context.Context, page *rod.Page) (Snapshot, error) {
	net := netwatch.New(page)
	layout := layoutwatch.New(page)
	defer layout.Close()

	nodeCountFn := func() int {
		doc, err := proto.DOMGetDocument{Depth: intPtr(-1), Pierce: true}.Call(page)
		if err != nil {
			return -1
		}
		return countNodes(doc.Root)
	}

	waiter := newStabilityWaiter(c.cfg.StableWindow, c.cfg.CaptureTimeout, nodeCountFn, net.Idle, layout.Stable)

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
	defer cancel()
	state := waiter.wait(waitCtx)

	doc, err := proto.DOMGetDocument{Depth: intPtr(-1), Pierce: true}.Call(page)
	if err != nil {
		if strings.Contains(err.Error(), "context") || ctx.Err() != nil {
			return Snapshot{}, newError(KindSessionLost, "DOM.getDocument failed during cancellation", err)
		}
		return Snapshot{}, newError(KindProtocol, "DOM.getDocument failed", err)
	}

	axTree, axErr := proto.AccessibilityGetFullAXTree{}.Call(page)
	if axErr != nil {
		c.cfg.Logger.Warn("snapshot: accessibility tree unavailable", "error", axErr)
	}

	builder := newXPathBuilder()
	builder.index(doc.Root)

	axByBackendID := indexAXNodes(axTree)

	frame := buildFrameSnapshot(page, doc.Root, builder, axByBackendID, nil, false)
	frames := []FrameSnapshot{frame}

	snap := Snapshot{
		CapturedAt: time.Now(),
		Viewport:   viewportOf(page),
		Frames:     frames,
		Partial:    state == stateTimedOut,
	}
	snap.SnapshotID = snapshotID(snap.Frames)

	if state == stateTimedOut {
		c.cfg.Logger.Warn("snapshot: capture timed out before stability", "url", pageURL(page))
	}

	return snap, nil
}

func pageURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func viewportOf(page *rod.Page) Viewport {
	metrics, err := proto.PageGetLayoutMetrics{}.Call(page)
	if err != nil || metrics.CSSVisualViewport == nil {
		return Viewport{}
	}
	return Viewport{
		Width:  int(metrics.CSSVisualViewport.ClientWidth),
		Height: int(metrics.CSSVisualViewport.ClientHeight),
	}
}

func countNodes(n *proto.DOMNode) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += countNodes(c)
	}
	for _, sr := range n.ShadowRoots {
		count += countNodes(sr)
	}
	if n.ContentDocument != nil {
		count += countNodes(n.ContentDocument)
	}
	return count
}

func intPtr(i int) *int { return &i }
