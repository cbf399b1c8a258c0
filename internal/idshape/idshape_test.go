package idshape

import "testing"

func TestIs(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"submit-button", false},
		{"email", false},
		{"a1b2c3d4-e5f6-47a8-b9c0-d1e2f3a4b5c6", true},
		{"main-content__a8f3x", true},
		{"x7k9m2p4q1", true},
		{"ok", false},
	}
	for _, c := range cases {
		if got := Is(c.in); got != c.want {
			t.Errorf("Is(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
