package transfer

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"sync"

	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/progress"
	"github.com/rescale/imghub/internal/selection"
	"github.com/rescale/imghub/internal/util/buffers"
)

// PartName returns the multipart field name for the blob at index.
func PartName(index int) string {
	return constants.UploadPartPrefix + strconv.Itoa(index)
}

// bodyStreamer produces the multipart body on demand. Each call to open
// starts a fresh stream with the same boundary, so retries resend the whole
// batch.
type bodyStreamer struct {
	blobs    []selection.Blob
	boundary string
	reporter progress.Reporter
	tracker  progress.FileTracker

	mu     sync.Mutex
	bodies []*lazyBody
}

func newBodyStreamer(blobs []selection.Blob, reporter progress.Reporter, tracker progress.FileTracker) *bodyStreamer {
	return &bodyStreamer{
		blobs:    blobs,
		boundary: multipart.NewWriter(io.Discard).Boundary(),
		reporter: reporter,
		tracker:  tracker,
	}
}

// ContentType is the request Content-Type, boundary included.
func (s *bodyStreamer) ContentType() string {
	return "multipart/form-data; boundary=" + s.boundary
}

// TotalBytes is the sum of the blob sizes.
func (s *bodyStreamer) TotalBytes() int64 {
	var total int64
	for _, b := range s.blobs {
		total += b.Size()
	}
	return total
}

// open hands out a reader that starts the multipart writer on its first Read.
// A reader closed without being read, as when the request length is probed,
// never touches the tracker or reporter.
func (s *bodyStreamer) open() (io.Reader, error) {
	b := &lazyBody{s: s}
	s.mu.Lock()
	s.bodies = append(s.bodies, b)
	s.mu.Unlock()
	return b, nil
}

// close unblocks any writer goroutine whose reader was abandoned.
func (s *bodyStreamer) close() {
	s.mu.Lock()
	bodies := s.bodies
	s.bodies = nil
	s.mu.Unlock()
	for _, b := range bodies {
		b.Close()
	}
}

// start creates the pipe for one attempt and begins writing into it.
func (s *bodyStreamer) start() (*io.PipeReader, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(s.boundary); err != nil {
		pw.Close()
		return nil, err
	}
	go func() {
		pw.CloseWithError(s.write(mw))
	}()
	return pr, nil
}

type lazyBody struct {
	s *bodyStreamer

	mu     sync.Mutex
	pr     *io.PipeReader
	closed bool
}

func (b *lazyBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if b.pr == nil {
		pr, err := b.s.start()
		if err != nil {
			b.mu.Unlock()
			return 0, err
		}
		b.pr = pr
	}
	pr := b.pr
	b.mu.Unlock()
	return pr.Read(p)
}

func (b *lazyBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.pr != nil {
		b.pr.CloseWithError(io.ErrClosedPipe)
	}
	return nil
}

func (s *bodyStreamer) write(mw *multipart.Writer) error {
	var sent int64
	for i, blob := range s.blobs {
		handle := s.tracker.AddFile(i, blob.Name(), blob.Size())
		n, err := s.writePart(mw, i, blob, handle, sent)
		sent += n
		handle.Complete(err)
		if err != nil {
			return err
		}
	}
	return mw.Close()
}

func (s *bodyStreamer) writePart(mw *multipart.Writer, index int, blob selection.Blob, handle progress.FileHandle, offset int64) (int64, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     PartName(index),
		"filename": blob.Name(),
	}))
	header.Set("Content-Type", blob.MediaType())

	part, err := mw.CreatePart(header)
	if err != nil {
		return 0, fmt.Errorf("failed to create part for %s: %w", blob.Name(), err)
	}

	rc, err := blob.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", blob.Name(), err)
	}
	defer rc.Close()

	counter := &countingWriter{w: part, onWrite: func(n int, total int64) {
		handle.Add(n)
		s.reporter.Update(offset + total)
	}}
	n, err := buffers.Copy(counter, rc)
	if err != nil {
		return n, fmt.Errorf("failed to send %s: %w", blob.Name(), err)
	}
	return n, nil
}

type countingWriter struct {
	w       io.Writer
	total   int64
	onWrite func(n int, total int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.total += int64(n)
	if n > 0 {
		c.onWrite(n, c.total)
	}
	return n, err
}
