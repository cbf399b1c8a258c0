package verify

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// OfflineResult mirrors Result for matches found against a parsed static
// document rather than a live CDP page. Only this package's tests call
// MatchOffline; the live pipeline verifies through Verify.
type OfflineResult struct {
	Unique bool
	Node   *html.Node
}

// MatchOffline resolves selector (CSS or XPath, the same subset synth
// emits) against doc and reports whether it matched exactly one node.
// It does not attempt visibility/occlusion/enabled checks — those require
// a live layout engine and are covered only by Verify.
func MatchOffline(doc *html.Node, selector string, isXPath bool) OfflineResult {
	var nodes []*html.Node
	if isXPath {
		nodes = evaluateXPath(doc, selector)
	} else {
		nodes = evaluateCSS(doc, selector)
	}

	r := OfflineResult{Unique: len(nodes) == 1}
	if len(nodes) > 0 {
		r.Node = nodes[0]
	}
	return r
}

// evaluateXPath evaluates the practical XPath subset synth produces:
// absolute paths, "//tag[normalize-space()='...']", and "//*[@id='...']".
// Grounded on the same descendant/absolute-path split used to extract
// page content elsewhere in this codebase.
func evaluateXPath(doc *html.Node, xpath string) []*html.Node {
	xpath = strings.TrimSpace(xpath)

	if strings.HasPrefix(xpath, "//") {
		return findDescendants(doc, xpath[2:])
	}
	if strings.HasPrefix(xpath, "/") {
		return followAbsolutePath(doc, xpath[1:])
	}
	return findDescendants(doc, xpath)
}

func findDescendants(root *html.Node, expr string) []*html.Node {
	steps := strings.SplitN(expr, "/", 2)
	tag, pred := parseXPathStep(steps[0])

	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesXPathStep(n, tag, pred) {
			matches = append(matches, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(steps) > 1 && steps[1] != "" {
		var filtered []*html.Node
		for _, m := range matches {
			filtered = append(filtered, followRelativePath(m, steps[1])...)
		}
		return filtered
	}
	return matches
}

func followAbsolutePath(root *html.Node, path string) []*html.Node {
	return followRelativePath(root, path)
}

func followRelativePath(node *html.Node, path string) []*html.Node {
	steps := strings.Split(path, "/")
	current := []*html.Node{node}

	for _, step := range steps {
		if step == "" {
			continue
		}
		tag, pred := parseXPathStep(step)
		var next []*html.Node
		for _, parent := range current {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				if matchesXPathStep(c, tag, pred) {
					next = append(next, c)
				}
			}
		}
		current = next
	}
	return current
}

type xpathPredicate struct {
	attrName   string
	attrValue  string
	position   int
	normSpace  string
	hasNormEq  bool
}

// parseXPathStep parses "div", "div[@id='x']", "div[2]",
// "button[normalize-space()='Submit']", and "*[@id='x']".
func parseXPathStep(step string) (string, *xpathPredicate) {
	idx := strings.IndexByte(step, '[')
	if idx < 0 {
		return step, nil
	}

	tag := step[:idx]
	predStr := strings.TrimRight(step[idx+1:], "]")
	pred := &xpathPredicate{}

	if n, err := strconv.Atoi(predStr); err == nil {
		pred.position = n
		return tag, pred
	}

	if strings.HasPrefix(predStr, "normalize-space()=") {
		pred.hasNormEq = true
		pred.normSpace = strings.Trim(strings.TrimPrefix(predStr, "normalize-space()="), `'"`)
		return tag, pred
	}

	if strings.HasPrefix(predStr, "@") {
		attrExpr := predStr[1:]
		if eqIdx := strings.IndexByte(attrExpr, '='); eqIdx >= 0 {
			pred.attrName = attrExpr[:eqIdx]
			pred.attrValue = strings.Trim(attrExpr[eqIdx+1:], `'"`)
		} else {
			pred.attrName = attrExpr
		}
		return tag, pred
	}

	return tag, nil
}

func matchesXPathStep(n *html.Node, tag string, pred *xpathPredicate) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if tag != "*" && n.Data != tag {
		return false
	}
	if pred == nil {
		return true
	}

	if pred.hasNormEq {
		return normalizeSpace(collectText(n)) == pred.normSpace
	}

	if pred.attrName != "" {
		val := getAttr(n, pred.attrName)
		if pred.attrValue != "" {
			return val == pred.attrValue
		}
		return hasAttr(n, pred.attrName)
	}

	if pred.position > 0 {
		pos := 0
		for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && s.Data == n.Data {
				pos++
				if s == n {
					return pos == pred.position
				}
			}
		}
		return false
	}

	return true
}

// evaluateCSS evaluates the CSS subset synth produces: tag, ".class",
// "[attr=\"value\"]", "[attr]", and chained combinations like
// "tag.class" or "[role=\"x\"][aria-label=\"y\"]".
func evaluateCSS(doc *html.Node, selector string) []*html.Node {
	tag, class, attrs := parseCSSSelector(selector)

	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && matchesCSS(n, tag, class, attrs) {
			matches = append(matches, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return matches
}

type cssAttr struct {
	name    string
	value   string
	hasEq   bool
}

// parseCSSSelector splits a selector like `button.primary[aria-label="x"]`
// into its tag, class, and ordered attribute predicates.
func parseCSSSelector(selector string) (tag, class string, attrs []cssAttr) {
	rest := selector

	for {
		idx := strings.IndexByte(rest, '[')
		if idx < 0 {
			break
		}
		end := strings.IndexByte(rest[idx:], ']')
		if end < 0 {
			break
		}
		end += idx
		predicate := rest[idx+1 : end]
		attrs = append(attrs, parseCSSAttr(predicate))
		rest = rest[:idx] + rest[end+1:]
	}

	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		tag = rest[:dot]
		class = rest[dot+1:]
	} else {
		tag = rest
	}
	return tag, class, attrs
}

func parseCSSAttr(predicate string) cssAttr {
	eq := strings.IndexByte(predicate, '=')
	if eq < 0 {
		return cssAttr{name: predicate}
	}
	return cssAttr{
		name:  predicate[:eq],
		value: strings.Trim(predicate[eq+1:], `'"`),
		hasEq: true,
	}
}

func matchesCSS(n *html.Node, tag, class string, attrs []cssAttr) bool {
	if tag != "" && n.Data != tag {
		return false
	}
	if class != "" {
		classes := strings.Fields(getAttr(n, "class"))
		found := false
		for _, c := range classes {
			if c == class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, a := range attrs {
		if a.hasEq {
			if getAttr(n, a.name) != a.value {
				return false
			}
		} else if !hasAttr(n, a.name) {
			return false
		}
	}
	return true
}

func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
