package sanitize

import "testing"

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "file too big", "file too big"},
		{"crlf", "line one\r\nline two\rline three", "line one line two line three"},
		{"tabs and runs", "a\t\t b   c", "a b c"},
		{"zero width", "up\u200Bload\uFEFF failed", "upload failed"},
		{"control chars", "bad\x00body\x07", "bad body"},
		{"html", "<html>\n  <body>\n    502\n  </body>\n</html>\n", "<html> <body> 502 </body> </html>"},
		{"trims", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.in); got != tt.want {
				t.Errorf("Line(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  front.jpg  ", "front.jpg"},
		{"\u00ADfront\u2060.jpg", "front.jpg"},
		{"keeps\ninner\tlayout", "keeps\ninner\tlayout"},
	}
	for _, tt := range tests {
		if got := Field(tt.in); got != tt.want {
			t.Errorf("Field(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
