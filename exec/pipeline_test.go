package locexec

import (
	"testing"

	"github.com/locatehq/locate/core"
	"github.com/locatehq/locate/snapshot"
)

func TestOriginOfExtractsSchemeAndHost(t *testing.T) {
	got := originOf("https://shop.example.com/cart?id=1")
	if got != "https://shop.example.com" {
		t.Fatalf("expected https://shop.example.com, got %q", got)
	}
}

func TestOriginOfFallsBackToRawOnUnparsable(t *testing.T) {
	got := originOf("not a url")
	if got != "not a url" {
		t.Fatalf("expected raw string fallback, got %q", got)
	}
}

func TestNormalizeQueryCollapsesWhitespaceAndCase(t *testing.T) {
	got := normalizeQuery("  Add   Phone To Cart  ")
	if got != "add phone to cart" {
		t.Fatalf("expected normalized query, got %q", got)
	}
}

func TestSortCandidatesDescOrdersByScore(t *testing.T) {
	cands := []candidate{
		{score: 0.2},
		{score: 0.9},
		{score: 0.5},
	}
	sortCandidatesDesc(cands)
	if cands[0].score != 0.9 || cands[1].score != 0.5 || cands[2].score != 0.2 {
		t.Fatalf("expected descending order, got %+v", cands)
	}
}

func TestElementEmbedTextJoinsNonEmptyFields(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:       "button",
		Role:      "button",
		Text:      "Close dialog",
		AriaLabel: "Close",
	}
	got := elementEmbedText(d)
	want := "button button Close dialog Close"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveModeHonorsOverride(t *testing.T) {
	p := &Pipeline{cc: &core.CoreContext{Config: core.Config{Mode: core.ModeSemantic}}}
	if got := p.resolveMode("no-semantic"); got != core.ModeNoSemantic {
		t.Fatalf("expected no-semantic override, got %q", got)
	}
}

func TestResolveModeFallsBackToConfigured(t *testing.T) {
	p := &Pipeline{cc: &core.CoreContext{Config: core.Config{Mode: core.ModeHybrid}}}
	if got := p.resolveMode(""); got != core.ModeHybrid {
		t.Fatalf("expected fallback to configured hybrid mode, got %q", got)
	}
	if got := p.resolveMode("not-a-real-mode"); got != core.ModeHybrid {
		t.Fatalf("expected fallback on unrecognized override, got %q", got)
	}
}

func TestSynthesizeForReturnsNilOnEmptyDescriptor(t *testing.T) {
	sels := synthesizeFor(snapshot.ElementDescriptor{})
	if sels != nil {
		t.Fatalf("expected nil for an empty descriptor, got %+v", sels)
	}
}
