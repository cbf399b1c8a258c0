package rank

import (
	"testing"

	"github.com/locatehq/locate/snapshot"
)

func descriptor(tag, xpath string, attrs map[string]string, text, role, name string, visible bool) snapshot.ElementDescriptor {
	return snapshot.ElementDescriptor{
		Tag:           tag,
		XPathAbsolute: xpath,
		Attributes:    attrs,
		Text:          text,
		Role:          role,
		Name:          name,
		Visible:       visible,
	}
}

func TestConfigValidateRejectsWeakAlpha(t *testing.T) {
	cfg := Config{Alpha: 0.3, Beta: 0.5, Gamma: 0.2}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when alpha < beta")
	}
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	cfg := Config{Alpha: 1.0, Beta: 0.5, Gamma: 0.2}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRankPureCosineOrderWhenBetaGammaZero(t *testing.T) {
	r, err := New(Config{Alpha: 1.0, Beta: 0, Gamma: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	frame := snapshot.FrameSnapshot{Elements: []snapshot.ElementDescriptor{
		{ContentHash: "a", XPathAbsolute: "/a", Visible: true},
		{ContentHash: "b", XPathAbsolute: "/b", Visible: true},
		{ContentHash: "c", XPathAbsolute: "/c", Visible: true},
	}}

	query := []float32{1, 0}
	elementVecs := map[string][]float32{
		"a": {1, 0},    // cos=1
		"b": {0, 1},    // cos=0
		"c": {-1, 0},   // cos=-1
	}

	scored := r.Rank("test", "q", "click", frame, query, elementVecs, nil)
	if scored[0].Descriptor.ContentHash != "a" || scored[1].Descriptor.ContentHash != "b" || scored[2].Descriptor.ContentHash != "c" {
		t.Fatalf("expected order a,b,c by pure cosine similarity, got %v, %v, %v",
			scored[0].Descriptor.ContentHash, scored[1].Descriptor.ContentHash, scored[2].Descriptor.ContentHash)
	}
}

func TestRankNormalizesQueryBeforePromotionLookup(t *testing.T) {
	r, err := New(Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	frame := snapshot.FrameSnapshot{Elements: []snapshot.ElementDescriptor{
		{ContentHash: "a", XPathAbsolute: "/a", Visible: true},
	}}

	var gotQuery string
	lookup := PromotionLookup(func(origin, normalizedQuery, selector string) float64 {
		gotQuery = normalizedQuery
		return 0
	})

	r.Rank("test", "  Add  Phone   To Cart ", "click", frame, nil, nil, lookup)
	if gotQuery != "add phone to cart" {
		t.Fatalf("expected lookup to receive normalized query, got %q", gotQuery)
	}
}

func TestRankS1DisambiguatesByEntity(t *testing.T) {
	vocab, err := ParseVocabulary([]byte("groups:\n  product: [phone, laptop, tablet]\n"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(Config{}, vocab)
	if err != nil {
		t.Fatal(err)
	}

	phone := descriptor("button", "/phone-btn", map[string]string{"data-product": "phone"}, "Add to Cart", "button", "", true)
	laptop := descriptor("button", "/laptop-btn", map[string]string{"data-product": "laptop"}, "Add to Cart", "button", "", true)
	tablet := descriptor("button", "/tablet-btn", map[string]string{"data-product": "tablet"}, "Add to Cart", "button", "", true)

	frame := snapshot.FrameSnapshot{Elements: []snapshot.ElementDescriptor{phone, laptop, tablet}}
	// All three are equally similar semantically and structurally; only
	// the vocabulary conflict rule should separate them.
	query := []float32{1, 0}

	scored := r.Rank("test", "add phone to cart", "click", frame, query, map[string][]float32{}, nil)
	if scored[0].Descriptor.Attributes["data-product"] != "phone" {
		t.Fatalf("expected phone button to rank first, got %v", scored[0].Descriptor.Attributes["data-product"])
	}
	for _, s := range scored[1:] {
		if s.Breakdown.Semantic != -1.0 {
			t.Fatalf("expected -1.0 semantic penalty on non-phone entity, got %v", s.Breakdown.Semantic)
		}
	}
}

func TestHeuristicInputTypeMatch(t *testing.T) {
	email := descriptor("input", "/email", map[string]string{"type": "email"}, "", "", "", true)
	username := descriptor("input", "/username", map[string]string{"type": "text"}, "", "", "", true)
	// Capture fills Type from the type attribute; mirror that here.
	email.Type = "email"
	username.Type = "text"

	emailScore := scoreHeuristic(email, "enter email", "type")
	usernameScore := scoreHeuristic(username, "enter email", "type")
	if emailScore <= usernameScore {
		t.Fatalf("email input (%v) should outscore username input (%v) for query 'enter email'", emailScore, usernameScore)
	}
}

func TestHeuristicHashLikeIDPenalty(t *testing.T) {
	clean := descriptor("button", "/clean", map[string]string{"id": "submit"}, "Submit", "button", "", true)
	hashID := descriptor("button", "/hashy", map[string]string{"id": "a1b2c3d4e5f6"}, "Submit", "button", "", true)

	cleanScore := scoreHeuristic(clean, "submit", "click")
	hashScore := scoreHeuristic(hashID, "submit", "click")
	if hashScore >= cleanScore {
		t.Fatalf("hash-like id should be penalized: clean=%v hash=%v", cleanScore, hashScore)
	}
}

func TestHeuristicInvisibleMultiplier(t *testing.T) {
	visible := descriptor("button", "/v", nil, "Submit", "button", "", true)
	hidden := descriptor("button", "/h", nil, "Submit", "button", "", false)

	vScore := scoreHeuristic(visible, "submit", "click")
	hScore := scoreHeuristic(hidden, "submit", "click")
	if hScore >= vScore {
		t.Fatalf("hidden element should score lower: visible=%v hidden=%v", vScore, hScore)
	}
}
