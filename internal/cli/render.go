package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rescale/imghub/internal/assets"
	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/transfer"
	ustrings "github.com/rescale/imghub/internal/util/strings"
)

// Output formats accepted by -o.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", f)
}

// entryDoc is the structured form of one entry for json/yaml output.
type entryDoc struct {
	ID        string         `json:"id" yaml:"id"`
	Timestamp string         `json:"timestamp" yaml:"timestamp"`
	Status    string         `json:"status" yaml:"status"`
	Summary   string         `json:"summary" yaml:"summary"`
	View      *viewDoc       `json:"view,omitempty" yaml:"view,omitempty"`
	Payload   history.Record `json:"payload,omitempty" yaml:"payload,omitempty"`
}

type viewDoc struct {
	Error  string              `json:"error,omitempty" yaml:"error,omitempty"`
	Images []imageDoc          `json:"images,omitempty" yaml:"images,omitempty"`
	Scores []history.ViewScore `json:"scores,omitempty" yaml:"scores,omitempty"`
}

type imageDoc struct {
	Label string `json:"label" yaml:"label"`
	Path  string `json:"path" yaml:"path"`
	URL   string `json:"url" yaml:"url"`
}

func status(e history.Entry) string {
	if e.IsError() {
		return "failed"
	}
	return "success"
}

func toDoc(e history.Entry, r *assets.Resolver, detailed bool) entryDoc {
	d := entryDoc{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Status:    status(e),
		Summary:   e.Summary(),
	}
	if !detailed {
		return d
	}
	v := e.View()
	vd := &viewDoc{Error: v.Error, Scores: v.Scores}
	for _, img := range v.Images {
		vd.Images = append(vd.Images, imageDoc{Label: img.Label, Path: img.Path, URL: r.URL(img.Path)})
	}
	d.View = vd
	d.Payload = e.Payload
	return d
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return validFormat(format)
}

// renderList writes entries newest first, one per line in text mode.
func renderList(w io.Writer, format string, entries []history.Entry, r *assets.Resolver) error {
	if format != formatText {
		docs := make([]entryDoc, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, toDoc(e, r, false))
		}
		return encode(w, format, docs)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No uploads yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSTATUS\tSUMMARY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"), status(e), ustrings.Ellipsize(e.Summary(), 80))
	}
	return tw.Flush()
}

// renderEntry writes the detailed view of one entry.
func renderEntry(w io.Writer, format string, e history.Entry, r *assets.Resolver) error {
	doc := toDoc(e, r, true)
	if format != formatText {
		return encode(w, format, doc)
	}

	fmt.Fprintf(w, "Entry:   %s\n", doc.ID)
	fmt.Fprintf(w, "Time:    %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Status:  %s\n", doc.Status)

	if e.IsError() {
		fmt.Fprintf(w, "Error:   %s\n", doc.View.Error)
		if t, ok := e.Payload[history.KeyErrorType].(string); ok {
			fmt.Fprintf(w, "Type:    %s\n", t)
		}
		if files, ok := e.Payload[history.KeyFiles].([]any); ok && len(files) > 0 {
			fmt.Fprintln(w, "Files:")
			for _, f := range files {
				fmt.Fprintf(w, "  - %v\n", f)
			}
		}
		return nil
	}

	if len(doc.View.Images) > 0 {
		fmt.Fprintln(w, "Images:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, img := range doc.View.Images {
			fmt.Fprintf(tw, "  %s\t%s\n", img.Label, img.URL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(doc.View.Scores) > 0 {
		fmt.Fprintln(w, "Detected views:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, s := range doc.View.Scores {
			fmt.Fprintf(tw, "  %v\t%v\n", orDash(s.View), orDash(s.Score))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(doc.View.Images) == 0 && len(doc.View.Scores) == 0 {
		data, err := json.MarshalIndent(e.Payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Payload:\n%s\n", data)
	}
	return nil
}

// renderOutcome prints the result of one submission.
func renderOutcome(w io.Writer, format string, res transfer.Result, entries []history.Entry, r *assets.Resolver) error {
	if len(entries) == 0 {
		if res.OK() {
			fmt.Fprintln(w, "Upload succeeded but no history entry was recorded.")
		} else {
			fmt.Fprintf(w, "Upload failed: %s\n", res.Reason)
		}
		return nil
	}
	if format != formatText {
		return encode(w, format, toDoc(entries[0], r, true))
	}
	if res.OK() {
		fmt.Fprintf(w, "Upload succeeded in %s\n\n", res.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Upload failed after %s\n\n", res.Duration.Round(time.Millisecond))
	}
	return renderEntry(w, format, entries[0], r)
}

func orDash(v any) any {
	if v == nil {
		return "-"
	}
	return v
}
