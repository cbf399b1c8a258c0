package rank

import (
	"strings"

	"github.com/locatehq/locate/snapshot"
)

// ExactMatcher implements the "no-semantic" operating mode of spec.md §9:
// it scores only exact matches against a fixed priority list of fields,
// falling back to the accessibility-tree fields when DOM matches are
// empty. Used by the exec pipeline when the mode is no-semantic.
type ExactMatcher struct{}

// exactFieldOrder is the priority list spec.md §9 fixes: innerText,
// aria-label, title, placeholder, id, name, value, data-testid.
var exactFieldOrder = []string{"text", "aria_label", "title", "placeholder", "id", "name", "value", "data-testid"}

func fieldValue(d snapshot.ElementDescriptor, field string) string {
	switch field {
	case "text":
		return d.Text
	case "aria_label":
		return d.AriaLabel
	case "title":
		return d.Title
	case "placeholder":
		return d.Placeholder
	case "id":
		return d.Attributes["id"]
	case "name":
		return d.Name
	case "value":
		return d.Value
	case "data-testid":
		if v, ok := d.Attributes["data-testid"]; ok {
			return v
		}
		return d.Attributes["data-test-id"]
	default:
		return ""
	}
}

// Match scores d against target using the fixed priority list: the first
// field (in priority order) that exactly matches (case-insensitive,
// whitespace-trimmed) determines the match; its priority rank maps to a
// descending score so the Ranker's ordering is still meaningful in
// no-semantic mode.
func (ExactMatcher) Match(d snapshot.ElementDescriptor, target string) (matched bool, score float64) {
	target = strings.TrimSpace(strings.ToLower(target))
	if target == "" {
		return false, 0
	}

	for i, field := range exactFieldOrder {
		val := strings.TrimSpace(strings.ToLower(fieldValue(d, field)))
		if val == "" {
			continue
		}
		if val == target {
			rank := len(exactFieldOrder) - i
			return true, float64(rank) / float64(len(exactFieldOrder))
		}
	}
	return false, 0
}

// MatchAX scores d against target using accessibility-tree fields only,
// the fallback path when no DOM field matched.
func (ExactMatcher) MatchAX(d snapshot.ElementDescriptor, target string) (matched bool, score float64) {
	target = strings.TrimSpace(strings.ToLower(target))
	if target == "" {
		return false, 0
	}
	if strings.TrimSpace(strings.ToLower(d.Role)) != "" && strings.Contains(strings.ToLower(d.AriaLabel), target) {
		return true, 0.5
	}
	return false, 0
}
