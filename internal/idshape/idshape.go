// Package idshape detects "hash-like" identifiers: values that look
// machine-generated (UUIDs, build-tool hashes, long alnum runs) rather
// than author-chosen. Shared by rank (heuristic penalty) and synth (tier
// 1-3 skip rule) so the two packages can never drift on the definition.
package idshape

import "regexp"

// pattern matches identifiers that look generated rather than
// author-chosen: UUIDs, 8+ char alnum runs, base64-ish tails, and
// webpack-style "__hash" suffixes.
var pattern = regexp.MustCompile(
	`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$` + // UUID
		`|^[a-z0-9]{8,}$` + // plain long alnum run
		`|[A-Za-z0-9+/]{16,}={0,2}$` + // base64-ish tail
		`|.*__[a-z0-9]{5,}$`, // webpack-style suffix
)

// Is reports whether s looks machine-generated: a UUID, a long alnum run
// with at least one digit or mixed case, a base64-ish tail, or a
// webpack-style "__hash" suffix.
func Is(s string) bool {
	if s == "" {
		return false
	}
	if !pattern.MatchString(s) {
		return false
	}
	if plainRun.MatchString(s) {
		return hasDigitOrMixedCase(s)
	}
	return true
}

// plainRun matches a bare alnum run, the one shape that also needs a
// digit or mixed case to count as hash-like.
var plainRun = regexp.MustCompile(`(?i)^[a-z0-9]{8,}$`)

func hasDigitOrMixedCase(s string) bool {
	hasDigit, hasUpper, hasLower := false, false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasDigit || (hasUpper && hasLower)
}
