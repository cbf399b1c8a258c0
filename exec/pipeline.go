// Package locexec wires the rest of the module together into the two
// public operations of spec.md §6: query() and act(). Named locexec (not
// exec) to avoid colliding with the standard library's os/exec.
package locexec

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/locatehq/locate/core"
	"github.com/locatehq/locate/heal"
	"github.com/locatehq/locate/kit"
	"github.com/locatehq/locate/rank"
	"github.com/locatehq/locate/snapshot"
	"github.com/locatehq/locate/synth"
	"github.com/locatehq/locate/verify"
)

// Timing mirrors spec.md §6's per-stage timing breakdown.
type Timing struct {
	CaptureMS int64 `json:"capture_ms"`
	EmbedMS   int64 `json:"embed_ms"`
	RankMS    int64 `json:"rank_ms"`
	VerifyMS  int64 `json:"verify_ms"`
	TotalMS   int64 `json:"total_ms"`
}

// candidate pairs a ranked descriptor with its score. Ranking leaves the
// selectors field empty; verification, strategy lookup and healing each
// call synthesizeFor on the descriptor when they need selectors.
type candidate struct {
	descriptor snapshot.ElementDescriptor
	score      float64
	degraded   bool
	selectors  []synth.Candidate
}

// Pipeline is the shared snapshot -> embed -> rank -> synth path used by
// both Query and Act, and by heal's Resnapshot hook.
type Pipeline struct {
	cc       *core.CoreContext
	capturer *snapshot.Capturer
}

// New builds a Pipeline against cc.
func New(cc *core.CoreContext) *Pipeline {
	return &Pipeline{
		cc: cc,
		capturer: snapshot.New(snapshot.Config{
			StableWindow:   cc.Config.StableWindow(),
			CaptureTimeout: cc.Config.CaptureTimeout(),
			Logger:         cc.Logger,
		}),
	}
}

// capture takes a fresh snapshot, pushes it into the page's session, and
// records the session's reindex decision. The pipeline always ranks
// against the fresh snapshot it just captured — re-ranking is cheap and
// correctness requires acting on current DOM state, not a cached guess —
// so the decision itself isn't used to skip capture/rank work. It is
// still a real signal worth keeping: logged here and tallied per page in
// session.PageSession.Stats, surfaced live at debugserver's
// /stats/sessions, so an operator can see route-change/hash-change/
// node-delta churn per page instead of it vanishing silently.
func (p *Pipeline) capture(ctx context.Context, page *rod.Page, pageID string) (snapshot.Snapshot, error) {
	snap, err := p.capturer.Capture(ctx, page)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("locexec: capture: %w", err)
	}

	sess := p.cc.Sessions.Ensure(pageID)
	reindex, reason := sess.ShouldReindex(snap.SnapshotID, snap.NodeCount())
	if reindex {
		p.cc.Logger.Debug("locexec: reindex", "page_id", pageID, "reason", reason, "node_count", snap.NodeCount())
	}
	sess.Push(snap)
	return snap, nil
}

// rank scores every element across every frame of snap against
// query/intentAction and returns candidates ordered strongest-first,
// branching on mode exactly as spec.md §9 describes: semantic/hybrid fuse
// embeddings + heuristics + promotion history; no-semantic uses the fixed
// exact-match priority list and never touches the embedder. Frames are
// scored independently so frame identity (needed for frame_path and
// per-frame uniqueness, spec.md §8 S6) is never blurred across frames.
func (p *Pipeline) rank(ctx context.Context, origin, query, intentAction string, snap snapshot.Snapshot, mode core.Mode, timing *Timing) ([]candidate, error) {
	if mode == core.ModeNoSemantic {
		var all []candidate
		for _, frame := range snap.Frames {
			all = append(all, rankExact(frame, query)...)
		}
		sortCandidatesDesc(all)
		return all, nil
	}

	embedder, err := p.cc.Embedder()
	if err != nil {
		return nil, fmt.Errorf("locexec: embedder: %w", err)
	}

	embedStart := time.Now()
	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("locexec: embed query: %w", err)
	}
	if timing != nil {
		timing.EmbedMS += time.Since(embedStart).Milliseconds()
	}

	var all []candidate
	for _, frame := range snap.Frames {
		frameCands, err := p.rankSemantic(ctx, origin, query, intentAction, frame, queryVec, mode, timing)
		if err != nil {
			return nil, err
		}
		all = append(all, frameCands...)
	}
	sortCandidatesDesc(all)
	return all, nil
}

func rankExact(frame snapshot.FrameSnapshot, query string) []candidate {
	var matcher rank.ExactMatcher
	var out []candidate
	for _, d := range frame.Elements {
		matched, score := matcher.Match(d, query)
		if !matched {
			matched, score = matcher.MatchAX(d, query)
		}
		if matched {
			out = append(out, candidate{descriptor: d, score: score})
		}
	}
	sortCandidatesDesc(out)
	return out
}

func (p *Pipeline) rankSemantic(ctx context.Context, origin, query, intentAction string, frame snapshot.FrameSnapshot, queryVec []float32, mode core.Mode, timing *Timing) ([]candidate, error) {
	byHash := make(map[string]string, len(frame.Elements))
	for _, d := range frame.Elements {
		byHash[d.ContentHash] = elementEmbedText(d)
	}
	elemEmbedStart := time.Now()
	results, err := p.cc.Cache.GetOrEmbed(ctx, byHash)
	if err != nil {
		return nil, fmt.Errorf("locexec: embed elements: %w", err)
	}
	if timing != nil {
		timing.EmbedMS += time.Since(elemEmbedStart).Milliseconds()
	}

	elementVecs := make(map[string][]float32, len(results))
	degradedHashes := make(map[string]bool, len(results))
	for hash, r := range results {
		elementVecs[hash] = r.Vector
		if r.Degraded {
			degradedHashes[hash] = true
		}
	}

	// Fetched once per frame rather than inside the lookup closure: rank.Rank
	// now probes every synthesized candidate selector per element (up to 8),
	// and promote.Store.Lookup takes no selector argument, so a per-call
	// fetch would re-run the identical (origin, query, mode) query 8x per
	// element for no new information.
	promoCands, err := p.cc.Promote.Lookup(ctx, origin, normalizeQuery(query), string(mode))
	if err != nil {
		promoCands = nil
	}
	promoBySelector := make(map[string]float64, len(promoCands))
	for _, c := range promoCands {
		if c.Confidence > promoBySelector[c.Selector] {
			promoBySelector[c.Selector] = c.Confidence
		}
	}
	lookup := rank.PromotionLookup(func(origin, normalizedQuery, selector string) float64 {
		return promoBySelector[selector]
	})

	rankStart := time.Now()
	scored := p.cc.Ranker.Rank(origin, query, intentAction, frame, queryVec, elementVecs, lookup)
	if timing != nil {
		timing.RankMS += time.Since(rankStart).Milliseconds()
	}

	out := make([]candidate, 0, len(scored))
	for _, s := range scored {
		out = append(out, candidate{
			descriptor: s.Descriptor,
			score:      s.Score,
			degraded:   degradedHashes[s.Descriptor.ContentHash],
		})
	}
	return out, nil
}

// recordPromotion persists selector as a winner for (origin, queryNorm,
// modeKey) and logs the write tagged with whatever request/page
// correlation IDs mcpserver attached to ctx via kit.WithRequestID/
// kit.WithPageID, so a promotion entry can be traced back to the MCP
// call that produced it.
func (p *Pipeline) recordPromotion(ctx context.Context, origin, queryNorm, selector, modeKey string) {
	if err := p.cc.Promote.RecordSuccess(ctx, origin, queryNorm, selector, modeKey); err != nil {
		return
	}
	p.cc.Logger.Debug("locexec: promotion recorded",
		"request_id", kit.GetRequestID(ctx),
		"page_id", kit.GetPageID(ctx),
		"origin", origin,
		"selector", selector,
		"mode", modeKey,
	)
}

func sortCandidatesDesc(cands []candidate) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].score > cands[j-1].score; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

// elementEmbedText builds the text fed to the embedder for one element,
// combining the fields that most determine its identity.
func elementEmbedText(d snapshot.ElementDescriptor) string {
	parts := []string{d.Tag}
	if d.Role != "" {
		parts = append(parts, d.Role)
	}
	if d.Text != "" {
		parts = append(parts, d.Text)
	}
	if d.AriaLabel != "" {
		parts = append(parts, d.AriaLabel)
	}
	if d.Placeholder != "" {
		parts = append(parts, d.Placeholder)
	}
	if d.Name != "" {
		parts = append(parts, d.Name)
	}
	return strings.Join(parts, " ")
}

// synthesizeFor produces the ordered candidate selector list for d, skipping
// (rather than failing the whole query) descriptors no strategy can
// express a selector for.
func synthesizeFor(d snapshot.ElementDescriptor) []synth.Candidate {
	sels, err := synth.Synthesize(d)
	if err != nil {
		return nil
	}
	return sels
}

// heal runs heal.Healer's 5-step protocol against page, wiring Try to
// verify.Verify and Resnapshot to a fresh capture+rank+synth — never the
// stale candidate list query/act already tried (spec.md §4.6 step 2).
func (p *Pipeline) heal(ctx context.Context, attempt *heal.Attempt, page *rod.Page, pageID, origin, phrase, queryNorm, modeKey, intentAction string, requireEnabled bool) (heal.Outcome, error) {
	mode := core.Mode(modeKey)
	hooks := heal.Hooks{
		Try: func(ctx context.Context, framePath []string, selector string, isXPath bool) (heal.TryResult, error) {
			res, err := verify.Verify(ctx, page, framePath, selector, isXPath, requireEnabled)
			if err != nil {
				return heal.TryResult{}, err
			}
			return heal.TryResult{OK: res.OK, Unique: res.Unique, Disabled: res.Disabled, Occluded: res.Occluded}, nil
		},
		Resnapshot: func(ctx context.Context) ([]heal.Candidate, error) {
			snap, err := p.capture(ctx, page, pageID)
			if err != nil {
				return nil, err
			}
			cands, err := p.rank(ctx, origin, phrase, intentAction, snap, mode, nil)
			if err != nil {
				return nil, err
			}
			var out []heal.Candidate
			for _, c := range cands {
				for _, s := range synthesizeFor(c.descriptor) {
					out = append(out, heal.Candidate{Selector: s.Selector, IsXPath: s.Kind == "xpath", FramePath: c.descriptor.FramePath})
				}
			}
			return out, nil
		},
	}

	healer := heal.New(heal.Config{MaxRetries: p.cc.Config.MaxRetries, Logger: p.cc.Logger}, p.cc.Promote, hooks)
	return healer.Heal(ctx, attempt, origin, queryNorm, modeKey)
}

// resolveMode returns override, coerced to a known core.Mode, or the
// pipeline's configured default when override is empty or unrecognized.
func (p *Pipeline) resolveMode(override string) core.Mode {
	switch core.Mode(override) {
	case core.ModeSemantic, core.ModeHybrid, core.ModeNoSemantic:
		return core.Mode(override)
	default:
		return p.cc.Config.Mode
	}
}

// originOf returns the scheme://host origin of rawURL, the namespace key
// for promotion-store lookups.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// normalizeQuery canonicalizes a query phrase for promotion-store keys:
// lower-cased, trimmed, internal whitespace collapsed.
func normalizeQuery(q string) string {
	fields := strings.Fields(strings.ToLower(q))
	return strings.Join(fields, " ")
}
