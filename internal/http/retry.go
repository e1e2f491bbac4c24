package http

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	nethttp "net/http"
	"strings"
	"syscall"
	"time"
)

// ErrorType is the retry class of a failure. Its name is what history
// records under "error_type".
type ErrorType int

const (
	ErrorTypeSuccess    ErrorType = iota
	ErrorTypeCredential           // 401/403, expired or rejected cloud credentials
	ErrorTypeNetwork              // dial, reset, timeout, deadline
	ErrorTypeRetryable            // 5xx, 429, throttling
	ErrorTypeFatal                // anything else: bad request, bad payload
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeSuccess:    "success",
	ErrorTypeCredential: "credential",
	ErrorTypeNetwork:    "network",
	ErrorTypeRetryable:  "retryable",
	ErrorTypeFatal:      "fatal",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ErrorTypeName returns the name of errType.
func ErrorTypeName(errType ErrorType) string {
	return errType.String()
}

// Config holds retry parameters for ExecuteWithRetry.
type Config struct {
	// MaxRetries is the total number of attempts, not the number of retries.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnRetry, if set, runs before each sleep with the 1-based attempt that
	// just failed.
	OnRetry func(attempt int, err error, errorType ErrorType)
}

// DefaultConfig returns the retry settings used for history exports.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     15 * time.Second,
	}
}

// Substrings checked, lower-cased, when the error carries no typed cause.
// Credential markers are checked first because cloud SDK messages often
// also contain a status code.
var (
	credentialMarkers = []string{
		"expired", "invalid token", "expiredtoken", "401", "403",
		"unauthorized", "authentication failed", "authenticationfailed",
		"signature not valid",
	}
	networkMarkers = []string{
		"connection reset", "connection refused", "broken pipe", "no such host",
		"network is unreachable", "tls handshake timeout", "i/o timeout",
		"timeout", "eof",
	}
	retryableMarkers = []string{
		"requesttimeout", "internalerror", "serviceunavailable",
		"service unavailable", "slowdown", "throttl", "server busy",
		"serverbusy", "429", "500", "502", "503", "504",
	}
)

// ClassifyError names the retry class of err. An expired submission deadline
// counts as a network failure.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return ErrorTypeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, credentialMarkers):
		return ErrorTypeCredential
	case containsAny(msg, networkMarkers):
		return ErrorTypeNetwork
	case containsAny(msg, retryableMarkers):
		return ErrorTypeRetryable
	}
	// Unknown errors are not retried.
	return ErrorTypeFatal
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// ClassifyStatus maps an HTTP status code onto an ErrorType.
func ClassifyStatus(code int) ErrorType {
	switch {
	case code >= 200 && code < 300:
		return ErrorTypeSuccess
	case code == nethttp.StatusUnauthorized || code == nethttp.StatusForbidden:
		return ErrorTypeCredential
	case code == nethttp.StatusTooManyRequests || code == nethttp.StatusRequestTimeout:
		return ErrorTypeRetryable
	case code >= 500 && code != nethttp.StatusNotImplemented:
		return ErrorTypeRetryable
	default:
		return ErrorTypeFatal
	}
}

// CalculateBackoff returns a full-jitter delay in
// [0, min(maxDelay, initialDelay*2^attempt)). Attempt 0 does not wait.
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || maxDelay <= 0 {
		return 0
	}
	ceiling := maxDelay
	if attempt < 31 {
		if d := initialDelay << uint(attempt); d > 0 && d < maxDelay {
			ceiling = d
		}
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// ExecuteWithRetry runs operation up to config.MaxRetries times. Fatal
// errors return at once. Credential errors wait a second, giving SDK
// credential chains a chance to refresh. Network and retryable errors back
// off with jitter. Cancellation is honored while sleeping, and a retry is
// not attempted when the context deadline would expire during the wait.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		if errType == ErrorTypeFatal {
			return err
		}
		if attempt == config.MaxRetries-1 {
			break
		}

		wait := time.Second
		if errType != ErrorTypeCredential {
			wait = CalculateBackoff(attempt, config.InitialDelay, config.MaxDelay)
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return fmt.Errorf("deadline too close to retry: %w", err)
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, errType)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}
