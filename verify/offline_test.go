package verify

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseFragment(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestMatchOfflineCSSAttribute(t *testing.T) {
	doc := parseFragment(t, `<button data-testid="submit-btn">Submit</button>`)
	r := MatchOffline(doc, `[data-testid="submit-btn"]`, false)
	if !r.Unique {
		t.Fatal("expected a unique match")
	}
}

func TestMatchOfflineCSSTagAndClass(t *testing.T) {
	doc := parseFragment(t, `<div class="foo bar"></div><div class="baz"></div>`)
	r := MatchOffline(doc, "div.bar", false)
	if !r.Unique {
		t.Fatal("expected unique match on div.bar")
	}
}

func TestMatchOfflineCSSChainedAttrs(t *testing.T) {
	doc := parseFragment(t, `<button role="button" aria-label="Close"></button><button role="button" aria-label="Open"></button>`)
	r := MatchOffline(doc, `[role="button"][aria-label="Close"]`, false)
	if !r.Unique {
		t.Fatal("expected unique match for chained attribute selector")
	}
}

func TestMatchOfflineXPathID(t *testing.T) {
	doc := parseFragment(t, `<div id="main-content"></div>`)
	r := MatchOffline(doc, `//*[@id="main-content"]`, true)
	if !r.Unique {
		t.Fatal("expected unique match by id")
	}
}

func TestMatchOfflineXPathNormalizeSpace(t *testing.T) {
	doc := parseFragment(t, `<button>  Submit  Order  </button>`)
	r := MatchOffline(doc, `//button[normalize-space()='Submit Order']`, true)
	if !r.Unique {
		t.Fatal("expected match with collapsed whitespace")
	}
}

func TestMatchOfflineNotUniqueWhenMultiple(t *testing.T) {
	doc := parseFragment(t, `<button class="item"></button><button class="item"></button>`)
	r := MatchOffline(doc, "button.item", false)
	if r.Unique {
		t.Fatal("expected not-unique for duplicate matches")
	}
}

func TestMatchOfflineNoMatch(t *testing.T) {
	doc := parseFragment(t, `<div></div>`)
	r := MatchOffline(doc, `[data-testid="missing"]`, false)
	if r.Unique || r.Node != nil {
		t.Fatal("expected no match")
	}
}
