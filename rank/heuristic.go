package rank

import (
	"strings"

	"github.com/locatehq/locate/internal/idshape"
	"github.com/locatehq/locate/snapshot"
)

// actionTags/actionRoles map an actionable intent to the tags/roles that
// satisfy it, per spec.md §4.3's "tag-role match for the action" rule.
var actionTags = map[string]map[string]bool{
	"click": {"button": true, "a": true},
	"hover": {"button": true, "a": true},
}

var actionRoles = map[string]map[string]bool{
	"click": {"button": true, "link": true, "menuitem": true},
	"hover": {"button": true, "link": true},
}

// typeHints maps common target-phrase tokens to the HTML input type they
// imply, per spec.md §4.3's "input-type match" rule.
var typeHints = map[string]string{
	"email":    "email",
	"password": "password",
	"phone":    "tel",
	"telephone": "tel",
	"number":   "number",
	"date":     "date",
	"search":   "search",
	"url":      "url",
}

// scoreHeuristic computes the structural heuristic sub-score in [0,1]:
// starts at 0.5, with capped additive adjustments so heuristic alone
// cannot invert semantic order, then visibility/disabled multipliers.
func scoreHeuristic(d snapshot.ElementDescriptor, targetPhrase, intentAction string) float64 {
	score := 0.5

	if roles, ok := actionTags[intentAction]; ok && roles[d.Tag] {
		score += 0.15
	} else if roles, ok := actionRoles[intentAction]; ok && roles[strings.ToLower(d.Role)] {
		score += 0.15
	}

	score += tokenOverlapScore(d, targetPhrase)

	if wantType, ok := inferInputType(targetPhrase); ok && strings.EqualFold(d.Type, wantType) {
		score += 0.15
	}

	score -= hashLikePenalty(d)
	if score < 0 {
		score = 0
	}

	if !d.Visible {
		score *= 0.3
	}
	if isDisabled(d) {
		score *= 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}

// tokenOverlapScore rewards attribute/name/text token overlap with the
// target phrase, up to +0.25.
func tokenOverlapScore(d snapshot.ElementDescriptor, targetPhrase string) float64 {
	targetTokens := tokenize(targetPhrase)
	if len(targetTokens) == 0 {
		return 0
	}

	haystack := strings.Join([]string{d.Text, d.Name, d.AriaLabel, d.Placeholder, d.Title, d.Alt, d.Value}, " ")
	haystackTokens := tokenSet(haystack)

	matches := 0
	for t := range targetTokens {
		if haystackTokens[t] {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}

	frac := float64(matches) / float64(len(targetTokens))
	return 0.25 * frac
}

func inferInputType(targetPhrase string) (string, bool) {
	for token := range tokenize(targetPhrase) {
		if t, ok := typeHints[token]; ok {
			return t, true
		}
	}
	return "", false
}

// hashLikePenalty applies -0.1 (floor 0) for every hash-like id/class
// token found on the descriptor.
func hashLikePenalty(d snapshot.ElementDescriptor) float64 {
	penalty := 0.0
	if idshape.Is(d.Attributes["id"]) {
		penalty += 0.1
	}
	for _, class := range strings.Fields(d.Attributes["class"]) {
		if idshape.Is(class) {
			penalty += 0.1
		}
	}
	return penalty
}

func isDisabled(d snapshot.ElementDescriptor) bool {
	_, hasDisabled := d.Attributes["disabled"]
	return hasDisabled || d.Attributes["aria-disabled"] == "true"
}

func tokenize(s string) map[string]bool {
	return tokenSet(s)
}

func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			set[f] = true
		}
	}
	return set
}
