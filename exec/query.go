package locexec

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/locatehq/locate/heal"
	"github.com/locatehq/locate/verify"
)

// QueryOptions are the optional parameters to Query, mirroring spec.md
// §6's `{url?, mode?}`.
type QueryOptions struct {
	URL  string
	Mode string // overrides the CoreContext's configured mode when set
}

// Alternative is a candidate the query considered but did not pick,
// returned so a caller can disambiguate manually.
type Alternative struct {
	Selector   string  `json:"selector"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// QueryResult mirrors spec.md §6's QueryResult exactly: required fields
// are never empty strings on success, and are simply absent (zero value)
// alongside a populated Err on failure.
type QueryResult struct {
	Success      bool          `json:"success"`
	Selector     string        `json:"selector,omitempty"`
	Strategy     string        `json:"strategy,omitempty"`
	Confidence   float64       `json:"confidence,omitempty"`
	FramePath    string        `json:"frame_path,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Verification verify.Result `json:"verification"`
	Timing       Timing        `json:"timing"`
	Degraded     bool          `json:"degraded,omitempty"`
	Err          *Error        `json:"error,omitempty"`
}

// Query runs the full snapshot -> embed -> rank -> synth -> verify
// pipeline for phrase against page, healing on verification failure per
// spec.md §4.6, and returns the first candidate that verifies.
func (p *Pipeline) Query(ctx context.Context, page *rod.Page, pageID, phrase string, opts QueryOptions) (QueryResult, error) {
	start := time.Now()
	var timing Timing

	origin := originOf(opts.URL)
	mode := p.resolveMode(opts.Mode)
	modeKey := string(mode)
	queryNorm := normalizeQuery(phrase)

	captureStart := time.Now()
	snap, err := p.capture(ctx, page, pageID)
	if err != nil {
		return QueryResult{Err: newError(KindSessionLost, "snapshotting", err.Error())}, nil
	}
	timing.CaptureMS = time.Since(captureStart).Milliseconds()

	cands, err := p.rank(ctx, origin, phrase, "", snap, mode, &timing)
	if err != nil {
		return QueryResult{Err: newError(KindNotFound, "ranking", err.Error())}, nil
	}

	attempt := heal.NewAttempt(p.cc.Config.MaxRetries)
	attempt.Advance(heal.StateSynthesizing, "synthesizing candidates")

	verifyStart := time.Now()
	res, alternatives, degraded, verr := p.verifyCandidates(ctx, page, cands, false)
	timing.VerifyMS = time.Since(verifyStart).Milliseconds()

	if verr == nil && res.OK {
		p.recordPromotion(ctx, origin, queryNorm, res.UsedSelector, modeKey)
		timing.TotalMS = time.Since(start).Milliseconds()
		return QueryResult{
			Success:      true,
			Selector:     res.UsedSelector,
			Strategy:     strategyFor(cands, res.UsedSelector),
			Confidence:   topScore(cands),
			FramePath:    res.FramePath,
			Alternatives: alternatives,
			Verification: res,
			Timing:       timing,
			Degraded:     degraded,
		}, nil
	}

	outcome, herr := p.heal(ctx, attempt, page, pageID, origin, phrase, queryNorm, modeKey, "", false)
	timing.TotalMS = time.Since(start).Milliseconds()
	if herr != nil {
		return QueryResult{Err: newError(KindNotFound, "healing", herr.Error())}, nil
	}
	if !outcome.OK {
		if len(alternatives) > 1 {
			return QueryResult{Err: newError(KindAmbiguous, "verifying", fmt.Sprintf("%d candidates above threshold, none uniquely verified", len(alternatives)))}, nil
		}
		return QueryResult{Err: newError(KindNotFound, "healing", outcome.Reason)}, nil
	}

	return QueryResult{
		Success:    true,
		Selector:   outcome.Selector,
		Strategy:   "healed",
		Confidence: topScore(cands),
		Timing:     timing,
	}, nil
}

// verifyCandidates tries each candidate's synthesized selectors in order,
// strongest first, returning the first that verifies.
func (p *Pipeline) verifyCandidates(ctx context.Context, page *rod.Page, cands []candidate, requireEnabled bool) (verify.Result, []Alternative, bool, error) {
	var alternatives []Alternative
	for _, c := range cands {
		sels := synthesizeFor(c.descriptor)
		for _, s := range sels {
			res, err := verify.Verify(ctx, page, c.descriptor.FramePath, s.Selector, s.Kind == "xpath", requireEnabled)
			if err != nil {
				continue
			}
			alternatives = append(alternatives, Alternative{Selector: s.Selector, Strategy: s.Strategy, Confidence: c.score})
			if res.OK {
				return res, alternatives, c.degraded, nil
			}
		}
	}
	return verify.Result{}, alternatives, false, fmt.Errorf("no candidate verified")
}

func strategyFor(cands []candidate, selector string) string {
	for _, c := range cands {
		for _, s := range synthesizeFor(c.descriptor) {
			if s.Selector == selector {
				return s.Strategy
			}
		}
	}
	return ""
}

func topScore(cands []candidate) float64 {
	if len(cands) == 0 {
		return 0
	}
	return cands[0].score
}
