package assets

import "testing"

func TestURL(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"http://localhost:8000/files", "uploads/a.jpg", "http://localhost:8000/files/uploads/a.jpg"},
		{"http://localhost:8000/files/", "a.jpg", "http://localhost:8000/files/a.jpg"},
		{"http://localhost:8000/files", "/a.jpg", "http://localhost:8000/files/a.jpg"},
		{"http://localhost:8000/files", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"http://localhost:8000/files", "", ""},
	}

	for _, tt := range tests {
		if got := NewResolver(tt.base).URL(tt.path); got != tt.want {
			t.Errorf("URL(%q) with base %q = %q, want %q", tt.path, tt.base, got, tt.want)
		}
	}
}
