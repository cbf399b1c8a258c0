package synth

import (
	"strings"
	"testing"

	"github.com/locatehq/locate/snapshot"
)

func TestSynthesizePrefersTestID(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:       "button",
		Attributes: map[string]string{"data-testid": "submit-btn", "id": "submit"},
		AriaLabel: "Submit",
		Text:      "Submit",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	if cands[0].Strategy != "test_id" {
		t.Fatalf("expected test_id to win first, got %s", cands[0].Strategy)
	}
	if cands[0].Selector != `[data-testid="submit-btn"]` {
		t.Fatalf("unexpected selector: %s", cands[0].Selector)
	}
}

func TestSynthesizeSkipsHashLikeTestID(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:        "button",
		Attributes: map[string]string{"data-testid": "a1b2c3d4e5f6g7h8"},
		AriaLabel:  "Close dialog",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	if cands[0].Strategy != "aria_label" {
		t.Fatalf("expected fallthrough to aria_label, got %s", cands[0].Strategy)
	}
}

func TestSynthesizeIconOnlyButtonUsesAriaLabel(t *testing.T) {
	// S3: icon-only button, no text, no id.
	d := snapshot.ElementDescriptor{
		Tag:       "button",
		AriaLabel: "Close",
		Role:      "button",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	if cands[0].Strategy != "aria_label" {
		t.Fatalf("expected aria_label strategy first, got %s", cands[0].Strategy)
	}
}

func TestSynthesizeSkipsHashLikeID(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:        "div",
		Attributes: map[string]string{"id": "9f8e7d6c5b4a"},
		AriaLabel:  "Menu",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.Strategy == "id" {
			t.Fatal("hash-like id should never be used as a strategy")
		}
	}
}

func TestSynthesizeContextualTextFallback(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:  "button",
		Text: "Add to Cart",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range cands {
		if c.Strategy == "contextual_text" {
			found = true
			if !strings.Contains(c.Selector, "Add to Cart") {
				t.Fatalf("expected selector to contain text, got %s", c.Selector)
			}
		}
	}
	if !found {
		t.Fatal("expected contextual_text candidate")
	}
}

func TestSynthesizeAbsoluteXPathLastResort(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:           "span",
		XPathAbsolute: "/html/body/div[2]/span[1]",
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	var xp Candidate
	for _, c := range cands {
		if c.Strategy == "absolute_xpath" {
			xp = c
		}
	}
	if xp.Selector != d.XPathAbsolute {
		t.Fatalf("expected absolute xpath candidate, got %+v", xp)
	}
}

func TestSynthesizeEditableFallback(t *testing.T) {
	d := snapshot.ElementDescriptor{
		Tag:        "div",
		Attributes: map[string]string{"contenteditable": "true"},
	}

	cands, err := Synthesize(d)
	if err != nil {
		t.Fatal(err)
	}
	if cands[len(cands)-1].Strategy != "contenteditable" {
		t.Fatalf("expected contenteditable as last candidate, got %s", cands[len(cands)-1].Strategy)
	}
}

func TestSynthesizeEmptyReturnsError(t *testing.T) {
	d := snapshot.ElementDescriptor{}
	_, err := Synthesize(d)
	if err == nil {
		t.Fatal("expected a KindEmpty *Error for a descriptor with nothing to key off")
	}
	var se *Error
	if !asError(err, &se) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if se.Kind != KindEmpty {
		t.Fatalf("expected KindEmpty, got %s", se.Kind)
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
