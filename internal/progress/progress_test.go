package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rescale/imghub/internal/events"
)

func TestEventReporter(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventProgress)

	p := NewEventReporter(bus, "upload")
	p.Start(200, "sending")
	p.Update(50)
	p.Finish()

	want := []float64{0, 0.25, 1}
	for i, w := range want {
		select {
		case ev := <-ch:
			pe := ev.(*events.ProgressEvent)
			if pe.Progress != w {
				t.Errorf("event %d progress = %v, want %v", i, pe.Progress, w)
			}
			if pe.Stage != "upload" {
				t.Errorf("event %d stage = %s", i, pe.Stage)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestBarReporterWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	p := NewBarReporter(&buf)
	p.Start(10, "upload")
	p.Update(10)
	p.Finish()
	p.Error(errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("output missing error: %q", buf.String())
	}
}

func TestFileUINonTerminal(t *testing.T) {
	var buf bytes.Buffer
	ui := newFileUI(2, &buf, false)

	h0 := ui.AddFile(0, "a.png", 100)
	h0.Add(60)
	h0.Add(40)
	h0.Complete(nil)

	h1 := ui.AddFile(1, "b.png", 10)
	h1.Complete(errors.New("connection reset"))
	ui.Wait()

	out := buf.String()
	for _, want := range []string{"[1/2]: a.png", "[2/2]: b.png", "✓ a.png", "✗ b.png: connection reset"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if h0.(*FileBar).Written() != 100 {
		t.Errorf("Written() = %d, want 100", h0.(*FileBar).Written())
	}
	if ui.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", ui.Completed())
	}
}

func TestNewModes(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()

	if r, _ := New(ModeEvents, bus, 1); r == nil {
		t.Fatal("nil reporter")
	} else if _, ok := r.(*EventReporter); !ok {
		t.Errorf("ModeEvents reporter = %T", r)
	}
	if r, _ := New(ModeEvents, nil, 1); r == nil {
		t.Fatal("nil reporter")
	} else if r != Discard {
		t.Errorf("ModeEvents without bus = %T, want no-op", r)
	}
	if _, tr := New(ModeFiles, nil, 3); tr == nil {
		t.Fatal("nil tracker")
	} else if _, ok := tr.(*FileUI); !ok {
		t.Errorf("ModeFiles tracker = %T", tr)
	}
	if r, tr := New(ModeNone, bus, 1); r == nil || tr == nil {
		t.Error("ModeNone should return no-op implementations, not nil")
	}
}
