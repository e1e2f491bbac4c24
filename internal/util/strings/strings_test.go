package strings

import "testing"

func TestPluralize(t *testing.T) {
	if got := Pluralize("image", 1); got != "image" {
		t.Errorf("Pluralize(image, 1) = %s", got)
	}
	if got := Pluralize("image", 0); got != "images" {
		t.Errorf("Pluralize(image, 0) = %s", got)
	}
}

func TestEllipsize(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"a longer value", 6, "a lon…"},
		{"héllo wörld", 5, "héll…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := Ellipsize(tt.in, tt.max); got != tt.want {
			t.Errorf("Ellipsize(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
