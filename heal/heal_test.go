package heal

import (
	"context"
	"testing"

	"github.com/locatehq/locate/promote"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *promote.Store {
	t.Helper()
	s, err := promote.Open(promote.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHealSucceedsOnPromotedSelector(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.RecordSuccess(ctx, "example.com", "submit", "[data-testid=\"submit\"]", "semantic")

	tried := 0
	hooks := Hooks{
		Try: func(ctx context.Context, framePath []string, selector string, isXPath bool) (TryResult, error) {
			tried++
			return TryResult{OK: selector == `[data-testid="submit"]`}, nil
		},
	}
	h := New(Config{}, store, hooks)
	attempt := NewAttempt(5)

	outcome, err := h.Heal(ctx, attempt, "example.com", "submit", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.OK {
		t.Fatalf("expected promoted selector to succeed, got %+v", outcome)
	}
	if tried != 1 {
		t.Fatalf("expected exactly 1 try against the promoted candidate, got %d", tried)
	}
}

func TestHealFallsThroughToResnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	resnapshotCalled := false
	hooks := Hooks{
		Try: func(ctx context.Context, framePath []string, selector string, isXPath bool) (TryResult, error) {
			return TryResult{OK: selector == "#fresh"}, nil
		},
		Resnapshot: func(ctx context.Context) ([]Candidate, error) {
			resnapshotCalled = true
			return []Candidate{{Selector: "#fresh", IsXPath: false}}, nil
		},
	}
	h := New(Config{}, store, hooks)
	attempt := NewAttempt(5)

	outcome, err := h.Heal(ctx, attempt, "example.com", "submit", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if !resnapshotCalled {
		t.Fatal("expected resnapshot to be invoked when promotion store has nothing")
	}
	if !outcome.OK || outcome.Selector != "#fresh" {
		t.Fatalf("expected fresh candidate to succeed, got %+v", outcome)
	}
}

func TestHealExhaustsMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	hooks := Hooks{
		Try: func(ctx context.Context, framePath []string, selector string, isXPath bool) (TryResult, error) {
			return TryResult{OK: false}, nil
		},
		Resnapshot: func(ctx context.Context) ([]Candidate, error) {
			return []Candidate{{Selector: "#a"}, {Selector: "#b"}, {Selector: "#c"}}, nil
		},
	}
	h := New(Config{MaxRetries: 2}, store, hooks)
	attempt := NewAttempt(2)

	outcome, err := h.Heal(ctx, attempt, "example.com", "q", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OK {
		t.Fatal("expected failure when every candidate fails")
	}
	if attempt.Retries != 2 {
		t.Fatalf("expected retries capped at 2, got %d", attempt.Retries)
	}
	if attempt.State != StateFailed {
		t.Fatalf("expected attempt to end in StateFailed, got %s", attempt.State)
	}
}

func TestHealPropagatesFramePathFromFreshCandidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	hooks := Hooks{
		Try: func(ctx context.Context, framePath []string, selector string, isXPath bool) (TryResult, error) {
			return TryResult{OK: selector == "#in-frame"}, nil
		},
		Resnapshot: func(ctx context.Context) ([]Candidate, error) {
			return []Candidate{{Selector: "#in-frame", FramePath: []string{"//iframe[1]"}}}, nil
		},
	}
	h := New(Config{}, store, hooks)
	attempt := NewAttempt(5)

	outcome, err := h.Heal(ctx, attempt, "example.com", "submit", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.OK {
		t.Fatalf("expected fresh candidate to succeed, got %+v", outcome)
	}
	if len(outcome.FramePath) != 1 || outcome.FramePath[0] != "//iframe[1]" {
		t.Fatalf("expected outcome to carry the winning candidate's frame path, got %+v", outcome.FramePath)
	}
}

func TestStripXPathIndicesRemovesPositionalPredicates(t *testing.T) {
	got := stripXPathIndices(`/html/body/div[2]/span[1]`)
	want := `/html/body/div/span`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStripXPathIndicesKeepsAttributePredicates(t *testing.T) {
	got := stripXPathIndices(`//button[@id="submit"][2]`)
	want := `//button[@id="submit"]`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStripCSSClassesRemovesClassQualifier(t *testing.T) {
	got := stripCSSClasses(`button.primary[aria-label="Submit"]`)
	want := `button[aria-label="Submit"]`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRelaxationStepsTriesOriginalFirst(t *testing.T) {
	steps := relaxationSteps(`button.primary`, false)
	if steps[0] != `button.primary` {
		t.Fatalf("expected original selector first, got %v", steps)
	}
}
