package snapshot

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "hello world"},
		{"\n\tfoo\nbar\t", "foo bar"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeText(c.in); got != c.want {
			t.Errorf("normalizeText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTextCapsLength(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	got := normalizeText(string(long))
	if len(got) != maxTextLen {
		t.Errorf("len(got) = %d, want %d", len(got), maxTextLen)
	}
}
