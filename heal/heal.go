package heal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/locatehq/locate/promote"
)

// TryResult is the outcome of trying one selector.
type TryResult struct {
	OK       bool
	Unique   bool
	Disabled bool
	Occluded bool
}

// Hooks wires heal's 5-step protocol to the rest of the pipeline. Each
// field is supplied by the caller (exec.locexec) the way the browser
// manager's RecycleCallback wires observers into its own lifecycle.
type Hooks struct {
	// Try verifies a candidate selector live, within framePath's nested
	// frame (empty for the top page), and reports the outcome.
	Try func(ctx context.Context, framePath []string, selector string, isXPath bool) (TryResult, error)
	// Resnapshot captures a fresh snapshot and returns a fresh ordered
	// list of candidate selectors for the same query, strongest first.
	// Callers must not reuse the stale descriptor list (spec.md §4.6 step 2).
	Resnapshot func(ctx context.Context) ([]Candidate, error)
}

// Candidate is one selector a healer can try; Heal derives its relaxed
// forms with relaxationSteps. FramePath is nil for promotion-
// store winners (the promotion schema does not track frame identity) and
// set for candidates rebuilt from a fresh snapshot.
type Candidate struct {
	Selector  string
	IsXPath   bool
	FramePath []string
}

// Config controls a Healer.
type Config struct {
	MaxRetries int
	Logger     *slog.Logger
}

func (c Config) applyDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Healer runs the 5-step healing protocol on verification failure.
type Healer struct {
	cfg   Config
	store *promote.Store
	hooks Hooks
}

// New builds a Healer backed by store for prior-winner lookups.
func New(cfg Config, store *promote.Store, hooks Hooks) *Healer {
	return &Healer{cfg: cfg.applyDefaults(), store: store, hooks: hooks}
}

// Outcome is the result of a full healing run.
type Outcome struct {
	OK        bool
	Selector  string
	FramePath []string
	Attempts  int
	Reason    string
}

// Heal runs the ordered healing protocol: consult promotion store, try
// its winners highest-confidence first, then re-snapshot/re-rank/
// re-synthesize and try fresh candidates (relaxing each in steps),
// stopping once attempt.MaxRetries tries have been made.
func (h *Healer) Heal(ctx context.Context, attempt *Attempt, origin, queryNorm, modeKey string) (Outcome, error) {
	attempt.Advance(StateHealing, "healing started")

	// Step 1: prior winners, highest-confidence first.
	if h.store != nil {
		cands, err := h.store.Lookup(ctx, origin, queryNorm, modeKey)
		if err != nil {
			h.cfg.Logger.Warn("heal: promotion lookup failed", "error", err)
		}
		for _, c := range cands {
			if attempt.ExhaustedRetries() {
				return h.exhausted(attempt), nil
			}
			ok, err := h.tryAndRecord(ctx, attempt, origin, queryNorm, modeKey, nil, c.Selector, selectorLooksLikeXPath(c.Selector))
			if err != nil {
				return Outcome{}, err
			}
			if ok {
				return Outcome{OK: true, Selector: c.Selector, Attempts: attempt.Retries}, nil
			}
		}
	}

	// Steps 2-4: re-snapshot, re-rank, re-synthesize; relax and retry each
	// fresh candidate in turn.
	if h.hooks.Resnapshot == nil {
		return h.exhausted(attempt), nil
	}
	fresh, err := h.hooks.Resnapshot(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("heal: resnapshot: %w", err)
	}

	for _, c := range fresh {
		for _, relaxed := range relaxationSteps(c.Selector, c.IsXPath) {
			if attempt.ExhaustedRetries() {
				return h.exhausted(attempt), nil
			}
			ok, err := h.tryAndRecord(ctx, attempt, origin, queryNorm, modeKey, c.FramePath, relaxed, c.IsXPath)
			if err != nil {
				return Outcome{}, err
			}
			if ok {
				return Outcome{OK: true, Selector: relaxed, FramePath: c.FramePath, Attempts: attempt.Retries}, nil
			}
		}
	}

	return h.exhausted(attempt), nil
}

func (h *Healer) tryAndRecord(ctx context.Context, attempt *Attempt, origin, queryNorm, modeKey string, framePath []string, selector string, isXPath bool) (bool, error) {
	attempt.Retries++
	res, err := h.hooks.Try(ctx, framePath, selector, isXPath)
	if err != nil {
		h.cfg.Logger.Warn("heal: try failed", "selector", selector, "error", err)
		return false, nil
	}

	if h.store != nil {
		if res.OK {
			_ = h.store.RecordSuccess(ctx, origin, queryNorm, selector, modeKey)
		} else {
			_ = h.store.RecordFailure(ctx, origin, queryNorm, selector, modeKey)
		}
	}
	return res.OK, nil
}

func (h *Healer) exhausted(attempt *Attempt) Outcome {
	attempt.Advance(StateFailed, "max_retries exhausted")
	return Outcome{OK: false, Attempts: attempt.Retries, Reason: "max_retries exhausted"}
}

// relaxationSteps returns the selectors to try for one candidate, the
// original always first. An XPath selector is followed by its form with
// positional indices stripped; a CSS selector by its form with the first
// ".class" qualifier dropped, whatever that class is. No role+name
// broadening step is produced, and a selector neither change alters
// yields only the original.
func relaxationSteps(selector string, isXPath bool) []string {
	steps := []string{selector}

	if isXPath {
		if stripped := stripXPathIndices(selector); stripped != selector {
			steps = append(steps, stripped)
		}
		return steps
	}

	if stripped := stripCSSClasses(selector); stripped != "" && stripped != selector {
		steps = append(steps, stripped)
	}
	return steps
}

// stripXPathIndices removes "[N]" positional predicates, leaving only
// attribute/text predicates and tag names.
func stripXPathIndices(xpath string) string {
	var sb strings.Builder
	inBracket := false
	bracketContent := strings.Builder{}
	for _, r := range xpath {
		switch {
		case r == '[':
			inBracket = true
			bracketContent.Reset()
		case r == ']':
			inBracket = false
			content := bracketContent.String()
			if !isPositionalPredicate(content) {
				sb.WriteByte('[')
				sb.WriteString(content)
				sb.WriteByte(']')
			}
		case inBracket:
			bracketContent.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isPositionalPredicate(predicate string) bool {
	for _, r := range predicate {
		if r < '0' || r > '9' {
			return false
		}
	}
	return predicate != ""
}

// stripCSSClasses removes the first ".class" qualifier from a CSS
// selector, leaving the tag, any later classes and attribute predicates.
// It returns "" when the selector has no class qualifier.
func stripCSSClasses(selector string) string {
	idx := strings.IndexByte(selector, '.')
	if idx < 0 {
		return ""
	}
	// Find where the class token ends (next '.', '[', or end of string).
	end := len(selector)
	for _, cut := range []byte{'.', '['} {
		if i := strings.IndexByte(selector[idx+1:], cut); i >= 0 && idx+1+i < end {
			end = idx + 1 + i
		}
	}
	return selector[:idx] + selector[end:]
}

func selectorLooksLikeXPath(selector string) bool {
	return strings.HasPrefix(selector, "/")
}
