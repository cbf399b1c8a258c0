// Package verify runs the five ordered live checks against a candidate
// selector — uniqueness, attached, visible, not-occluded, enabled — and
// reports a VerificationResult a caller can act on directly.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
)

// Result is the outcome of verifying one candidate selector against one
// frame. Fields mirror spec.md §4.5 exactly so callers can log or promote
// off the struct without reshaping it.
type Result struct {
	OK           bool   `json:"ok"`
	Unique       bool   `json:"unique"`
	Attached     bool   `json:"attached"`
	Visible      bool   `json:"visible"`
	Occluded     bool   `json:"occluded"`
	Disabled     bool   `json:"disabled"`
	UsedSelector string `json:"used_selector"`
	FramePath    string `json:"frame_path"`
	Explanation  string `json:"explanation"`

	// FramePage is the resolved frame the checks ran against (the top page
	// itself when FramePath is empty). Not serialized; lets a caller act
	// against the same frame it just verified without re-resolving it.
	FramePage *rod.Page `json:"-"`
}

func fail(selector, framePath string, framePage *rod.Page, explanation string, r Result) Result {
	r.UsedSelector = selector
	r.FramePath = framePath
	r.FramePage = framePage
	r.Explanation = explanation
	r.OK = false
	return r
}

// queryScript finds all matches for a CSS or XPath selector and returns
// a handle to the first one plus the total match count, so the uniqueness
// check and the rest of the pipeline share one DOM query.
const queryScript = `(selector, isXPath) => {
	let nodes;
	if (isXPath) {
		const result = document.evaluate(selector, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		nodes = [];
		for (let i = 0; i < result.snapshotLength; i++) nodes.push(result.snapshotItem(i));
	} else {
		nodes = Array.from(document.querySelectorAll(selector));
	}
	return { count: nodes.length, first: nodes[0] || null };
}`

// Verify runs the five ordered checks against selector (CSS unless
// isXPath is set), stopping at the first failing check. framePath descends
// into the same nested frame the candidate was captured from (spec.md §4.4
// S6: uniqueness and frame_path are both per-frame); an empty framePath
// checks the top page. requireEnabled should be true for actionable
// intents (click, type, select, check, uncheck, focus, clear, upload) and
// false for read-only intents.
func Verify(ctx context.Context, page *rod.Page, framePath []string, selector string, isXPath bool, requireEnabled bool) (Result, error) {
	var r Result
	pathLabel := strings.Join(framePath, " > ")

	target, err := ResolveFrame(ctx, page, framePath)
	if err != nil {
		return fail(selector, pathLabel, nil, fmt.Sprintf("resolve frame: %v", err), r), nil
	}

	obj, err := target.Context(ctx).Eval(queryScript, selector, isXPath)
	if err != nil {
		return r, fmt.Errorf("verify: query %q: %w", selector, err)
	}

	count := obj.Value.Get("count").Int()
	if count == 0 {
		return fail(selector, pathLabel, target, "no element matched the selector", r), nil
	}
	if count > 1 {
		return fail(selector, pathLabel, target, fmt.Sprintf("selector matched %d elements, expected exactly 1", count), r), nil
	}
	r.Unique = true
	r.Attached = true

	var el *rod.Element
	if isXPath {
		el, err = target.Context(ctx).ElementX(selector)
	} else {
		el, err = target.Context(ctx).Element(selector)
	}
	if err != nil {
		return fail(selector, pathLabel, target, fmt.Sprintf("resolve matched element: %v", err), r), nil
	}

	visible, err := el.Visible()
	if err != nil {
		return fail(selector, pathLabel, target, fmt.Sprintf("visibility check failed: %v", err), r), nil
	}
	r.Visible = visible
	if !visible {
		return fail(selector, pathLabel, target, "element is not visible (zero box, display:none, visibility:hidden, or opacity:0)", r), nil
	}

	occludedObj, err := el.Eval(occlusionScript)
	if err != nil {
		return fail(selector, pathLabel, target, fmt.Sprintf("occlusion check failed: %v", err), r), nil
	}
	r.Occluded = !occludedObj.Value.Bool()
	if r.Occluded {
		return fail(selector, pathLabel, target, "element is occluded at its center point by another node", r), nil
	}

	disabledObj, err := el.Eval(disabledScript)
	if err != nil {
		return fail(selector, pathLabel, target, fmt.Sprintf("enabled check failed: %v", err), r), nil
	}
	r.Disabled = disabledObj.Value.Bool()
	if requireEnabled && r.Disabled {
		return fail(selector, pathLabel, target, "element is disabled or aria-disabled", r), nil
	}

	r.OK = true
	r.UsedSelector = selector
	r.FramePath = pathLabel
	r.FramePage = target
	r.Explanation = "all checks passed"
	return r, nil
}

// ResolveFrame descends page through framePath (each entry an absolute
// XPath, resolved within its parent frame, to the iframe/frame element to
// enter next) and returns the page scoped to the final frame. An empty
// framePath returns page unchanged.
func ResolveFrame(ctx context.Context, page *rod.Page, framePath []string) (*rod.Page, error) {
	cur := page
	for _, xpath := range framePath {
		el, err := cur.Context(ctx).ElementX(xpath)
		if err != nil {
			return nil, fmt.Errorf("resolve frame element %q: %w", xpath, err)
		}
		next, err := el.Frame()
		if err != nil {
			return nil, fmt.Errorf("enter frame %q: %w", xpath, err)
		}
		cur = next
	}
	return cur, nil
}

// occlusionScript reports whether elementFromPoint at the element's
// center resolves to the element itself or one of its descendants.
const occlusionScript = `function() {
	const rect = this.getBoundingClientRect();
	const cx = rect.left + rect.width / 2;
	const cy = rect.top + rect.height / 2;
	const hit = document.elementFromPoint(cx, cy);
	return hit === this || this.contains(hit);
}`

// disabledScript reports whether the element is disabled via the
// "disabled" property or aria-disabled="true".
const disabledScript = `function() {
	return this.disabled === true || this.getAttribute('aria-disabled') === 'true';
}`
