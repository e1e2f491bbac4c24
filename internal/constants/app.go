package constants

import (
	"time"
)

// Endpoint defaults
const (
	// DefaultUploadBaseURL - base URL of the analysis API; uploads go to <base>/upload
	DefaultUploadBaseURL = "http://localhost:8000/api"

	// DefaultAssetBaseURL - base URL for result images returned by the analysis API
	DefaultAssetBaseURL = "http://localhost:8000/files"

	// UploadPath - path appended to the upload base URL
	UploadPath = "/upload"

	// UploadPartPrefix - multipart part names are <prefix><index>, index in submission order
	UploadPartPrefix = "image_"
)

// History persistence
const (
	// HistoryKey - the single well-known key holding the serialized history array
	HistoryKey = "upload_responses"

	// DefaultHistoryBackend - "file" stores one file per key, "sqlite" uses a kv table
	DefaultHistoryBackend = "file"

	// DefaultHistoryMaxEntries - 0 keeps every entry until the history is cleared
	DefaultHistoryMaxEntries = 0
)

// Transfer limits
const (
	// DefaultSubmitTimeout - bounded wait for one submission, request and response included
	DefaultSubmitTimeout = 120 * time.Second

	// DefaultMaxRetries - 0 means a submission is exactly one HTTP call
	DefaultMaxRetries = 0

	// MaxMaxRetries - upper bound accepted from configuration
	MaxMaxRetries = 10

	// RetryWaitMin - minimum wait between upload retries
	RetryWaitMin = 1 * time.Second

	// RetryWaitMax - maximum wait between upload retries
	RetryWaitMax = 30 * time.Second

	// ErrorBodySnippet - bytes of a non-2xx response body kept in the failure reason
	ErrorBodySnippet = 512

	// SniffLength - bytes read to detect a file's media type when the extension is unknown
	SniffLength = 512

	// CopyBufferSize - pooled buffer used to stream image bytes (32 KB)
	CopyBufferSize = 32 * 1024
)

// Retry configuration (export sinks)
const (
	// MaxRetries - maximum number of attempts for export puts
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	RetryMaxDelay = 15 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressUpdateInterval - interval for progress bar updates (250ms)
	ProgressUpdateInterval = 250 * time.Millisecond

	// ProgressThrottleMillis - progressbar render throttle
	ProgressThrottleMillis = 100
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - hard cap on a single client round trip (5 minutes)
	HTTPClientTimeout = 300 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// Display
const (
	// NotificationTitleMax - notification titles longer than this are truncated
	NotificationTitleMax = 40

	// NotificationMessageMax - notification bodies longer than this are truncated
	NotificationMessageMax = 200
)
