package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ImageRef is a result image path with its display label.
type ImageRef struct {
	Label string `json:"label" yaml:"label"`
	Path  string `json:"path" yaml:"path"`
}

// ViewScore pairs one detected view with its score.
type ViewScore struct {
	View  any `json:"view" yaml:"view"`
	Score any `json:"score" yaml:"score"`
}

// View is the display-oriented reading of an entry's payload.
type View struct {
	Failed bool        `json:"failed" yaml:"failed"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty"`
	Images []ImageRef  `json:"images,omitempty" yaml:"images,omitempty"`
	Scores []ViewScore `json:"scores,omitempty" yaml:"scores,omitempty"`
}

var imageFields = []struct {
	key   string
	label string
}{
	{"main_img_name", "Uploaded"},
	{"car_detection", "Car Detection"},
	{"part_detection", "Part Detection"},
}

// View extracts the result images (file_details) and the detected views
// (rule_based_view_type paired index-wise with final_scores). Error entries
// and payloads without those fields yield an empty view.
func (e Entry) View() View {
	if e.IsError() {
		return View{Failed: true, Error: e.ErrorMessage()}
	}

	var v View
	if details, ok := e.Payload["file_details"].(map[string]any); ok {
		for _, f := range imageFields {
			if p, ok := details[f.key].(string); ok && p != "" {
				v.Images = append(v.Images, ImageRef{Label: f.label, Path: p})
			}
		}
	}

	views, _ := e.Payload["rule_based_view_type"].([]any)
	scores, _ := e.Payload["final_scores"].([]any)
	for i, view := range views {
		var score any
		if i < len(scores) {
			score = scores[i]
		}
		v.Scores = append(v.Scores, ViewScore{View: view, Score: score})
	}
	return v
}

// Summary is a one-line description for list output.
func (e Entry) Summary() string {
	if e.IsError() {
		msg := e.ErrorMessage()
		if n, ok := e.Payload[KeyFileCount].(float64); ok {
			return fmt.Sprintf("%s (%d files)", msg, int(n))
		}
		if n, ok := e.Payload[KeyFileCount].(int); ok {
			return fmt.Sprintf("%s (%d files)", msg, n)
		}
		return msg
	}

	v := e.View()
	if len(v.Scores) == 0 && len(v.Images) == 0 {
		return fmt.Sprintf("%d fields", len(e.Payload))
	}
	parts := make([]string, 0, len(v.Scores))
	for _, s := range v.Scores {
		parts = append(parts, fmt.Sprintf("%s=%s", stringify(s.View), stringify(s.Score)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d images", len(v.Images))
	}
	return strings.Join(parts, ", ")
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case float64, int, int64, bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
