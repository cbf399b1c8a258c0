// Package synth turns a ranked element descriptor into an ordered list of
// candidate selectors, strongest first, following the fixed 8-tier
// priority order: test ids, aria-label, id, role+name, minimal CSS path,
// contextual XPath, absolute XPath, contenteditable/onclick fallback.
package synth

import (
	"fmt"
	"strings"

	"github.com/locatehq/locate/internal/idshape"
	"github.com/locatehq/locate/snapshot"
)

// Candidate is one synthesized selector.
type Candidate struct {
	Selector string `json:"selector"`
	Kind     string `json:"kind"` // "css" or "xpath"
	Strategy string `json:"strategy"`
}

var testIDAttrs = []string{"data-testid", "data-test-id", "data-qa"}

// Synthesize runs all eight strategies against d in priority order and
// returns every candidate that matched. Callers act on Candidates[0] and
// fall through in order on verification failure. Returns an *Error of
// KindEmpty if no strategy produced anything.
func Synthesize(d snapshot.ElementDescriptor) ([]Candidate, error) {
	var out []Candidate

	if c, ok := byTestID(d); ok {
		out = append(out, c)
	}
	if c, ok := byAriaLabel(d); ok {
		out = append(out, c)
	}
	if c, ok := byID(d); ok {
		out = append(out, c)
	}
	if c, ok := byRoleAndName(d); ok {
		out = append(out, c)
	}
	if c, ok := byMinimalCSSPath(d); ok {
		out = append(out, c)
	}
	if c, ok := byContextualText(d); ok {
		out = append(out, c)
	}
	if c, ok := byAbsoluteXPath(d); ok {
		out = append(out, c)
	}
	if c, ok := byEditableOrClickable(d); ok {
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, newEmptyError(d.Tag)
	}
	return out, nil
}

// byTestID is tier 1: data-testid / data-test-id / data-qa, skipped when
// the value looks machine-generated.
func byTestID(d snapshot.ElementDescriptor) (Candidate, bool) {
	for _, attr := range testIDAttrs {
		v, ok := d.Attributes[attr]
		if !ok || v == "" || idshape.Is(v) {
			continue
		}
		return Candidate{
			Selector: fmt.Sprintf(`[%s=%q]`, attr, v),
			Kind:     "css",
			Strategy: "test_id",
		}, true
	}
	return Candidate{}, false
}

// byAriaLabel is tier 2: stable aria-label, the primary path for
// icon-only buttons with no visible text.
func byAriaLabel(d snapshot.ElementDescriptor) (Candidate, bool) {
	label := strings.TrimSpace(d.AriaLabel)
	if label == "" {
		return Candidate{}, false
	}
	return Candidate{
		Selector: fmt.Sprintf(`[aria-label=%q]`, label),
		Kind:     "css",
		Strategy: "aria_label",
	}, true
}

// byID is tier 3: a non-hash-like id attribute.
func byID(d snapshot.ElementDescriptor) (Candidate, bool) {
	id := d.Attributes["id"]
	if id == "" || idshape.Is(id) {
		return Candidate{}, false
	}
	return Candidate{
		Selector: fmt.Sprintf(`//*[@id=%q]`, id),
		Kind:     "xpath",
		Strategy: "id",
	}, true
}

// byRoleAndName is tier 4: accessibility role paired with accessible
// name, for elements whose role carries intent (button, link, checkbox).
func byRoleAndName(d snapshot.ElementDescriptor) (Candidate, bool) {
	role := strings.TrimSpace(d.Role)
	name := strings.TrimSpace(d.AriaLabel)
	if name == "" {
		name = strings.TrimSpace(d.Name)
	}
	if role == "" || name == "" {
		return Candidate{}, false
	}
	return Candidate{
		Selector: fmt.Sprintf(`[role=%q][aria-label=%q]`, role, name),
		Kind:     "css",
		Strategy: "role_name",
	}, true
}

// byMinimalCSSPath is tier 5: the shortest ancestor chain of tag plus
// disambiguating attribute that still reads as CSS. Since descriptors
// carry no live ancestor chain, this degrades to the tag qualified by its
// first non-hash-like class, or else by its name attribute.
func byMinimalCSSPath(d snapshot.ElementDescriptor) (Candidate, bool) {
	tag := strings.ToLower(d.Tag)
	if tag == "" {
		return Candidate{}, false
	}

	class := firstStableClass(d.Attributes["class"])
	if class != "" {
		return Candidate{
			Selector: fmt.Sprintf("%s.%s", tag, class),
			Kind:     "css",
			Strategy: "minimal_css_path",
		}, true
	}

	if name := strings.TrimSpace(d.Name); name != "" {
		return Candidate{
			Selector: fmt.Sprintf(`%s[name=%q]`, tag, name),
			Kind:     "css",
			Strategy: "minimal_css_path",
		}, true
	}

	return Candidate{}, false
}

// firstStableClass returns the first class token that does not look
// machine-generated, or "" if none qualify.
func firstStableClass(classAttr string) string {
	for _, tok := range strings.Fields(classAttr) {
		if tok != "" && !idshape.Is(tok) {
			return tok
		}
	}
	return ""
}

// byContextualText is tier 6: a tag qualified by its own normalized inner
// text, the common pattern for buttons and links ("Submit", "Cancel").
func byContextualText(d snapshot.ElementDescriptor) (Candidate, bool) {
	text := normalizeSpace(d.Text)
	tag := strings.ToLower(d.Tag)
	if text == "" || tag == "" {
		return Candidate{}, false
	}
	return Candidate{
		Selector: fmt.Sprintf(`//%s[normalize-space()=%q]`, tag, text),
		Kind:     "xpath",
		Strategy: "contextual_text",
	}, true
}

// byAbsoluteXPath is tier 7: the positional-index absolute path computed
// at capture time. Last resort before editable/clickable fallbacks since
// it breaks on any structural DOM change.
func byAbsoluteXPath(d snapshot.ElementDescriptor) (Candidate, bool) {
	if d.XPathAbsolute == "" {
		return Candidate{}, false
	}
	return Candidate{
		Selector: d.XPathAbsolute,
		Kind:     "xpath",
		Strategy: "absolute_xpath",
	}, true
}

// byEditableOrClickable is tier 8: contenteditable or onclick-attributed
// elements, used when nothing semantic is present at all.
func byEditableOrClickable(d snapshot.ElementDescriptor) (Candidate, bool) {
	tag := strings.ToLower(d.Tag)
	if tag == "" {
		return Candidate{}, false
	}
	if _, ok := d.Attributes["contenteditable"]; ok {
		return Candidate{
			Selector: fmt.Sprintf("%s[contenteditable]", tag),
			Kind:     "css",
			Strategy: "contenteditable",
		}, true
	}
	if _, ok := d.Attributes["onclick"]; ok {
		return Candidate{
			Selector: fmt.Sprintf("%s[onclick]", tag),
			Kind:     "css",
			Strategy: "onclick",
		}, true
	}
	return Candidate{}, false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
