package narc

import "testing"

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{".", ""},
		{"./", ""},
		{"/", ""},
		{"a/b/c.txt", "a/b/c.txt"},
		{"/a/b/c.txt", "a/b/c.txt"},
		{"./a/b", "a/b"},
		{`a\b\c.txt`, "a/b/c.txt"},
		{"a//b///c", "a/b/c"},
		{"a/./b", "a/b"},
		{"a/b/", "a/b"},
		{"  a/b  ", "a/b"},
		{"a/../b", "b"},
		{"../escape", "escape"},
	}

	for _, tc := range cases {
		if got := NormalizePath(tc.in); got != tc.want {
			t.Errorf("NormalizePath(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
