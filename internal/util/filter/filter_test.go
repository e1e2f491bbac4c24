package filter

import (
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		path string
		cfg  Config
		want bool
	}{
		{"empty config", "a/b/front.jpg", Config{}, true},
		{"include hit", "front.jpg", Config{Include: []string{"*.jpg"}}, true},
		{"include case-insensitive", "FRONT.JPG", Config{Include: []string{"*.jpg"}}, true},
		{"include miss", "front.png", Config{Include: []string{"*.jpg"}}, false},
		{"include matches base name", "batch/front.jpg", Config{Include: []string{"front.*"}}, true},
		{"exclude wins", "thumb_front.jpg", Config{Include: []string{"*.jpg"}, Exclude: []string{"thumb_*"}}, false},
		{"exclude only", "front.jpg", Config{Exclude: []string{"thumb_*"}}, true},
		{"path include plain glob", "front/a.jpg", Config{PathInclude: []string{"front/*.jpg"}}, true},
		{"path include miss", "rear/a.jpg", Config{PathInclude: []string{"front/*.jpg"}}, false},
		{"leading double star", "a/b/side.jpg", Config{PathInclude: []string{"**/side.jpg"}}, true},
		{"leading double star top level", "side.jpg", Config{PathInclude: []string{"**/side.jpg"}}, true},
		{"trailing double star", "batch_1/a/b.jpg", Config{PathInclude: []string{"batch_*/**"}}, true},
		{"middle double star", "batch_2/x/y/side.jpg", Config{PathInclude: []string{"batch_*/**/side.jpg"}}, true},
		{"middle double star miss", "other/x/side.jpg", Config{PathInclude: []string{"batch_*/**/side.jpg"}}, false},
		{"whole double star", "anything/at/all.jpg", Config{PathInclude: []string{"**"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.path, tt.cfg); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	paths := []string{"a.jpg", "b.png", "thumb_c.jpg", "d.JPG"}
	got := Apply(paths, Config{Include: []string{"*.jpg"}, Exclude: []string{"thumb_*"}})
	want := []string{"a.jpg", "d.JPG"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
	if got := Apply(paths, Config{}); !reflect.DeepEqual(got, paths) {
		t.Errorf("Apply(empty) = %v, want input unchanged", got)
	}
}

func TestParsePatternList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"*.jpg", []string{"*.jpg"}},
		{"*.jpg, *.png ,,", []string{"*.jpg", "*.png"}},
	}
	for _, tt := range tests {
		if got := ParsePatternList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePatternList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
