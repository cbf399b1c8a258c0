// Package rank implements the fusion ranker of spec.md §4.3: combining
// semantic similarity, structural heuristics, and historical promotion
// scores into a single ordering over a snapshot's elements for a query.
package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/locatehq/locate/embed"
	"github.com/locatehq/locate/snapshot"
	"github.com/locatehq/locate/synth"
)

// Config holds the fusion weights. The invariant α ≥ max(β, γ) (semantic
// dominance) is enforced by Validate.
type Config struct {
	Alpha float64 // semantic weight, default 1.0
	Beta  float64 // heuristic weight, default 0.5
	Gamma float64 // promotion weight, default 0.2
}

func (c *Config) applyDefaults() {
	if c.Alpha == 0 && c.Beta == 0 && c.Gamma == 0 {
		c.Alpha, c.Beta, c.Gamma = 1.0, 0.5, 0.2
	}
}

// Validate enforces the semantic-dominance invariant: α must be at least
// as large as both β and γ.
func (c Config) Validate() error {
	if c.Alpha < c.Beta || c.Alpha < c.Gamma {
		return fmt.Errorf("rank: invariant violated: alpha (%.3f) must be >= max(beta, gamma) (%.3f, %.3f)", c.Alpha, c.Beta, c.Gamma)
	}
	return nil
}

// ScoreBreakdown records each sub-score that contributed to a final score,
// for callers that need to explain a ranking decision.
type ScoreBreakdown struct {
	Semantic   float64
	Heuristic  float64
	Promotion  float64
	Final      float64
}

// Scored pairs a descriptor with its fusion score and breakdown.
type Scored struct {
	Descriptor snapshot.ElementDescriptor
	Score      float64
	Breakdown  ScoreBreakdown
}

// PromotionLookup resolves a prior promotion-store confidence for
// (origin, normalizedQuery, selector); implementations return 0 when no
// entry exists. The ranker only needs a read path, so this is a narrow
// interface rather than a dependency on the full promote.Store type.
type PromotionLookup func(origin, normalizedQuery, selector string) float64

// bestPromotionScore resolves the promotion sub-score for d as the max
// lookup confidence across every selector synth would offer for it, not
// just its raw absolute XPath: promotions are recorded against whatever
// selector actually won verification (synth's tier 1-6 strategies in
// practice, since those rank above absolute XPath), so keying the lookup
// on XPathAbsolute alone almost never matches a stored winner. Falls back
// to XPathAbsolute itself if synth has nothing to offer.
func bestPromotionScore(lookup PromotionLookup, origin, normalizedQuery string, d snapshot.ElementDescriptor) float64 {
	cands, err := synth.Synthesize(d)
	if err != nil || len(cands) == 0 {
		return lookup(origin, normalizedQuery, d.XPathAbsolute)
	}
	best := 0.0
	for _, c := range cands {
		if score := lookup(origin, normalizedQuery, c.Selector); score > best {
			best = score
		}
	}
	return best
}

// Ranker scores and orders a snapshot's elements against a query.
type Ranker struct {
	cfg        Config
	vocabulary *Vocabulary
}

// New returns a Ranker with defaults applied and cfg validated.
func New(cfg Config, vocabulary *Vocabulary) (*Ranker, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{cfg: cfg, vocabulary: vocabulary}, nil
}

// Rank scores every element in frame against query, using queryVec for the
// semantic sub-score, elementVecs keyed by content hash, and lookup for
// the promotion sub-score. Returns elements ordered by descending score;
// scores are never re-capped after fusion.
func (r *Ranker) Rank(origin, query string, intentAction string, frame snapshot.FrameSnapshot, queryVec []float32, elementVecs map[string][]float32, lookup PromotionLookup) []Scored {
	out := make([]Scored, 0, len(frame.Elements))
	normalizedQuery := normalizeQuery(query)

	for _, d := range frame.Elements {
		semantic := 0.0
		if vec, ok := elementVecs[d.ContentHash]; ok && len(queryVec) > 0 {
			semantic = embed.RemapCosine(embed.CosineSimilarity(queryVec, vec))
		}

		heuristic := scoreHeuristic(d, query, intentAction)

		promotion := 0.0
		if lookup != nil {
			promotion = bestPromotionScore(lookup, origin, normalizedQuery, d)
		}

		if r.vocabulary != nil && r.vocabulary.ConflictsWithQuery(query, d) {
			semantic = -1.0
		}

		final := (r.cfg.Alpha*semantic + r.cfg.Beta*heuristic + r.cfg.Gamma*promotion) / (r.cfg.Alpha + r.cfg.Beta + r.cfg.Gamma)

		out = append(out, Scored{
			Descriptor: d,
			Score:      final,
			Breakdown: ScoreBreakdown{
				Semantic:  semantic,
				Heuristic: heuristic,
				Promotion: promotion,
				Final:     final,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out
}

// normalizeQuery canonicalizes a query phrase into the same key shape the
// promotion store is keyed by: lower-cased, trimmed, internal whitespace
// collapsed. Kept local to avoid a dependency on the locexec package that
// computes the canonical form for writes.
func normalizeQuery(q string) string {
	fields := strings.Fields(strings.ToLower(q))
	return strings.Join(fields, " ")
}
