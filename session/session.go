// Package session owns the snapshot cache for one browser page and
// decides when to reindex, per spec.md §4.7: on route change, on a
// rolling-hash difference, or when node_count moves by 30% or more.
package session

import (
	"log/slog"
	"sync"

	"github.com/locatehq/locate/snapshot"
)

// Reason identifies why ShouldReindex returned true.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonRoute      Reason = "route_change"
	ReasonHashChange Reason = "hash_change"
	ReasonNodeDelta  Reason = "node_count_delta"
)

// nodeDeltaThreshold is the fraction of node-count change, relative to
// the previous snapshot, that forces a reindex even without a route
// event or hash change.
const nodeDeltaThreshold = 0.30

// Config controls a Manager.
type Config struct {
	// SnapKeep caps how many recent snapshots each page keeps for delta
	// diffing. Default 10.
	SnapKeep int
	Logger   *slog.Logger
}

func (c Config) applyDefaults() Config {
	if c.SnapKeep <= 0 {
		c.SnapKeep = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Manager owns one PageSession per observed page, mirroring the teacher
// watcher's page-ID-keyed observer map.
type Manager struct {
	cfg   Config
	mu    sync.Mutex
	pages map[string]*PageSession
}

// New creates an empty session manager.
func New(cfg Config) *Manager {
	cfg = cfg.applyDefaults()
	return &Manager{cfg: cfg, pages: make(map[string]*PageSession)}
}

// Ensure returns the PageSession for pageID, creating it on first use.
func (m *Manager) Ensure(pageID string) *PageSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ps, ok := m.pages[pageID]; ok {
		return ps
	}
	ps := &PageSession{pageID: pageID, snapKeep: m.cfg.SnapKeep, logger: m.cfg.Logger}
	m.pages[pageID] = ps
	return ps
}

// Remove drops a page's session, e.g. on tab close.
func (m *Manager) Remove(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageID)
}

// Stats returns the current reindex-decision counters for every tracked
// page, for debugserver's /stats/sessions.
func (m *Manager) Stats() []Stats {
	m.mu.Lock()
	pages := make([]*PageSession, 0, len(m.pages))
	for _, ps := range m.pages {
		pages = append(pages, ps)
	}
	m.mu.Unlock()

	out := make([]Stats, len(pages))
	for i, ps := range pages {
		out[i] = ps.Stats()
	}
	return out
}

// PageSession tracks one page's rolling snapshot history and reindex
// state.
type PageSession struct {
	pageID   string
	snapKeep int
	logger   *slog.Logger

	mu            sync.Mutex
	recent        []snapshot.Snapshot
	domHash       string
	nodeCount     int
	routeChanged  bool
	lastReason    Reason
	reindexCount  int64
	decisionCount int64
}

// Stats summarizes a PageSession's most recent reindex decision, for
// /stats/sessions.
type Stats struct {
	PageID        string `json:"page_id"`
	LastReason    Reason `json:"last_reason"`
	ReindexCount  int64  `json:"reindex_count"`
	DecisionCount int64  `json:"decision_count"`
	NodeCount     int    `json:"node_count"`
}

// Stats reports p's current reindex-decision counters.
func (p *PageSession) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		PageID:        p.pageID,
		LastReason:    p.lastReason,
		ReindexCount:  p.reindexCount,
		DecisionCount: p.decisionCount,
		NodeCount:     p.nodeCount,
	}
}

// MarkRouteChange records that pushState/replaceState/popstate/hashchange
// fired since the last snapshot, forcing the next ShouldReindex call to
// return true regardless of hash or node count.
func (p *PageSession) MarkRouteChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routeChanged = true
}

// ShouldReindex decides whether newHash/newNodeCount warrant a reindex,
// per spec.md §4.7/§8 invariant #5: route change OR rolling hash differs
// OR |Δnodes|/|nodes_prev| >= 30%. Records the decision (Stats) so a
// caller that doesn't act on the bool directly still surfaces it via
// debugserver's /stats/sessions.
func (p *PageSession) ShouldReindex(newHash string, newNodeCount int) (bool, Reason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reindex, reason := p.decide(newHash, newNodeCount)
	p.decisionCount++
	p.lastReason = reason
	if reindex {
		p.reindexCount++
	}
	return reindex, reason
}

func (p *PageSession) decide(newHash string, newNodeCount int) (bool, Reason) {
	if p.routeChanged {
		return true, ReasonRoute
	}
	if p.domHash == "" {
		// First snapshot for this page always indexes.
		return true, ReasonHashChange
	}
	if p.domHash != newHash {
		return true, ReasonHashChange
	}
	if p.nodeCount > 0 && nodeDelta(p.nodeCount, newNodeCount) >= nodeDeltaThreshold {
		return true, ReasonNodeDelta
	}
	return false, ReasonNone
}

func nodeDelta(prev, cur int) float64 {
	if prev == 0 {
		return 1
	}
	delta := cur - prev
	if delta < 0 {
		delta = -delta
	}
	return float64(delta) / float64(prev)
}

// Push records a fresh snapshot as the current state, trims the ring
// buffer to snapKeep, and clears the route-change flag.
func (p *PageSession) Push(snap snapshot.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.domHash = snap.SnapshotID
	p.nodeCount = snap.NodeCount()
	p.routeChanged = false

	p.recent = append(p.recent, snap)
	if len(p.recent) > p.snapKeep {
		p.recent = p.recent[len(p.recent)-p.snapKeep:]
	}
}

// Recent returns the kept snapshot history, oldest first.
func (p *PageSession) Recent() []snapshot.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]snapshot.Snapshot, len(p.recent))
	copy(out, p.recent)
	return out
}

// Latest returns the most recently pushed snapshot, or the zero value and
// false if none has been pushed yet.
func (p *PageSession) Latest() (snapshot.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recent) == 0 {
		return snapshot.Snapshot{}, false
	}
	return p.recent[len(p.recent)-1], true
}
