package promote

import "testing"

func TestConfidenceNoTrialsIsNeutral(t *testing.T) {
	if c := confidence(0, 0); c != 0.5 {
		t.Fatalf("expected 0.5 with no trials, got %v", c)
	}
}

func TestConfidenceShrinksSmallSampleTowardNeutral(t *testing.T) {
	oneSuccess := confidence(1, 0)
	manySuccesses := confidence(8, 1)
	if oneSuccess >= manySuccesses {
		t.Fatalf("1 success with no failures (%v) should not outrank 8/9 with history (%v)", oneSuccess, manySuccesses)
	}
}

func TestConfidenceUnshrunkAtOrAboveThreshold(t *testing.T) {
	c := confidence(9, 1)
	if c != 0.9 {
		t.Fatalf("expected raw rate 0.9 at 10 trials, got %v", c)
	}
}
