// Package progress reports the bytes of an outgoing submission, either as
// terminal bars or as events on the bus.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/events"
)

// Reporter follows the aggregate byte count of one request body.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

// BarReporter draws a single byte bar.
type BarReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBarReporter draws on w, or on stderr when w is nil.
func NewBarReporter(w io.Writer) *BarReporter {
	if w == nil {
		w = os.Stderr
	}
	return &BarReporter{out: w}
}

func (p *BarReporter) Start(total int64, description string) {
	out := p.out
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(constants.ProgressThrottleMillis),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
}

func (p *BarReporter) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

func (p *BarReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error abandons the bar and prints err below it.
func (p *BarReporter) Error(err error) {
	if err == nil {
		return
	}
	if p.bar != nil {
		_ = p.bar.Exit()
	}
	fmt.Fprintf(p.out, "\nupload failed: %v\n", err)
}

// EventReporter publishes ProgressEvents for stage. Errors are published
// as LogEvents.
type EventReporter struct {
	bus   *events.EventBus
	stage string
	total atomic.Int64
}

func NewEventReporter(bus *events.EventBus, stage string) *EventReporter {
	return &EventReporter{bus: bus, stage: stage}
}

func (p *EventReporter) Start(total int64, description string) {
	p.total.Store(total)
	p.bus.PublishProgress(p.stage, 0, total, description)
}

func (p *EventReporter) Update(current int64) {
	p.bus.PublishProgress(p.stage, current, p.total.Load(), "")
}

func (p *EventReporter) Finish() {
	total := p.total.Load()
	p.bus.PublishProgress(p.stage, total, total, "done")
}

func (p *EventReporter) Error(err error) {
	if err != nil {
		p.bus.PublishLog(events.ErrorLevel, err.Error(), p.stage, err)
	}
}

// Discard is a Reporter that reports nothing.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Start(int64, string) {}
func (discard) Update(int64)        {}
func (discard) Finish()             {}
func (discard) Error(error)         {}
