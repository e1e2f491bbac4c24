package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// FileUI shows one mpb bar per file of a submission.
type FileUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	totalFiles int
	completed  int32
}

// FileBar is the bar for a single file.
type FileBar struct {
	bar       *mpb.Bar
	ui        *FileUI
	index     int
	name      string
	size      int64
	written   int64
	startTime time.Time
}

// NewFileUI creates a per-file UI on stderr. Bars are only drawn on a
// terminal; otherwise one line per file is printed.
func NewFileUI(totalFiles int) *FileUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	return newFileUI(totalFiles, os.Stderr, isTerminal)
}

func newFileUI(totalFiles int, out io.Writer, isTerminal bool) *FileUI {
	var p *mpb.Progress
	if isTerminal {
		if f, ok := out.(*os.File); ok {
			enableVT(f)
		}
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &FileUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddFile creates a bar for the file at index (0-based).
func (u *FileUI) AddFile(index int, name string, size int64) FileHandle {
	fb := &FileBar{
		ui:        u,
		index:     index + 1,
		name:      name,
		size:      size,
		startTime: time.Now(),
	}

	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s", fb.index, u.totalFiles, name), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Sending [%d/%d]: %s (%.1f KiB)\n", fb.index, u.totalFiles, name, float64(size)/1024)
	}

	return fb
}

// Add advances the bar by n bytes.
func (f *FileBar) Add(n int) {
	atomic.AddInt64(&f.written, int64(n))
	if f.bar != nil {
		f.bar.IncrBy(n)
	}
}

// Complete finishes the bar and prints a one-line summary.
func (f *FileBar) Complete(err error) {
	elapsed := time.Since(f.startTime)

	var msg string
	if err == nil {
		if f.bar != nil {
			f.bar.SetTotal(f.size, true)
		}
		msg = fmt.Sprintf("✓ %s (%.1f KiB, %s)\n", f.name, float64(f.size)/1024, elapsed.Round(time.Millisecond))
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s: %v\n", f.name, err)
	}

	if f.ui.isTerminal {
		f.ui.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(f.ui.out, msg)
	}

	atomic.AddInt32(&f.ui.completed, 1)
}

// Written returns the bytes recorded so far.
func (f *FileBar) Written() int64 {
	return atomic.LoadInt64(&f.written)
}

// Completed returns how many files have finished.
func (u *FileUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// Wait blocks until all progress bars complete.
func (u *FileUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}
