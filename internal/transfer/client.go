package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/http"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/progress"
	"github.com/rescale/imghub/internal/selection"
	"github.com/rescale/imghub/internal/util/sanitize"
	ustrings "github.com/rescale/imghub/internal/util/strings"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client submits image batches to <upload_base_url>/upload.
type Client struct {
	url        string
	timeout    time.Duration
	maxRetries int
	baseClient *nethttp.Client
	logger     *logging.Logger
	progressFn ProgressFunc
}

// ProgressFunc builds the progress sinks for one submission of n files.
type ProgressFunc func(n int) (progress.Reporter, progress.FileTracker)

func noProgress(int) (progress.Reporter, progress.FileTracker) {
	return progress.Discard, progress.NoOpTracker{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the proxy-aware client built from config.
func WithHTTPClient(c *nethttp.Client) Option {
	return func(cl *Client) { cl.baseClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithProgress sets the factory for per-submission progress sinks.
func WithProgress(fn ProgressFunc) Option {
	return func(cl *Client) {
		if fn != nil {
			cl.progressFn = fn
		}
	}
}

// WithTimeout overrides the per-submission deadline.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// NewClient creates a transfer client from cfg.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("transfer client requires a config")
	}

	c := &Client{
		url:        cfg.UploadURL(),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		logger:     logging.NewNopLogger(),
		progressFn: noProgress,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.timeout <= 0 {
		c.timeout = constants.DefaultSubmitTimeout
	}

	if c.baseClient == nil {
		base, err := http.CreateUploadClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
		c.baseClient = base
	}

	return c, nil
}

// URL returns the endpoint submissions are posted to.
func (c *Client) URL() string {
	return c.url
}

func (c *Client) retryClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = c.baseClient
	rc.RetryMax = c.maxRetries
	rc.RetryWaitMin = constants.RetryWaitMin
	rc.RetryWaitMax = constants.RetryWaitMax
	rc.Logger = logging.RetryLogger{L: c.logger}
	// Hand back the last response or error as-is; classification happens here.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// Submit posts blobs as parts image_0..image_n-1 and waits at most the
// configured timeout. It never returns an error: every outcome is a Result.
func (c *Client) Submit(ctx context.Context, blobs []selection.Blob) (result Result) {
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	if len(blobs) == 0 {
		return Failure("no files to upload", 0, http.ErrorTypeName(http.ErrorTypeFatal))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reporter, tracker := c.progressFn(len(blobs))
	body := newBodyStreamer(blobs, reporter, tracker)

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.url, retryablehttp.ReaderFunc(body.open))
	if err != nil {
		return Failure(fmt.Sprintf("failed to build request: %v", err), 0, http.ErrorTypeName(http.ErrorTypeFatal))
	}
	req.Header.Set("Content-Type", body.ContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.url).Int("files", len(blobs)).Int64("bytes", body.TotalBytes()).Msg("Submitting batch")
	reporter.Start(body.TotalBytes(), fmt.Sprintf("Uploading %d files", len(blobs)))

	// A response can come with an error when retries are exhausted on a
	// retryable status; the response wins so the status is reported.
	resp, err := c.retryClient().Do(req)
	body.close()
	tracker.Wait()
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		reason := transportReason(ctx, err, c.timeout)
		reporter.Error(errors.New(reason))
		c.logger.Warn().Err(err).Str("url", c.url).Msg("Upload request failed")
		return Failure(reason, 0, http.ErrorTypeName(http.ClassifyError(err)))
	}
	defer resp.Body.Close()
	reporter.Finish()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		reason := transportReason(ctx, err, c.timeout)
		return Failure(fmt.Sprintf("failed to read response: %s", reason), resp.StatusCode, http.ErrorTypeName(http.ClassifyError(err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := fmt.Sprintf("upload failed with status %d %s", resp.StatusCode, nethttp.StatusText(resp.StatusCode))
		if snippet := snippet(data); snippet != "" {
			reason += ": " + snippet
		}
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Upload rejected by endpoint")
		return Failure(reason, resp.StatusCode, http.ErrorTypeName(http.ClassifyStatus(resp.StatusCode)))
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return Failure(fmt.Sprintf("unparsable response: %v", err), resp.StatusCode, http.ErrorTypeName(http.ErrorTypeFatal))
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return Failure(fmt.Sprintf("unparsable response: expected a JSON object, got %s", jsonKind(decoded)), resp.StatusCode, http.ErrorTypeName(http.ErrorTypeFatal))
	}

	r := Success(history.Record(obj))
	r.StatusCode = resp.StatusCode
	return r
}

func transportReason(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("upload timed out after %s", timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "upload cancelled"
	}
	return err.Error()
}

func snippet(data []byte) string {
	return ustrings.Ellipsize(sanitize.Line(string(data)), constants.ErrorBodySnippet)
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
