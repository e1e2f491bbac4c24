// Package transfer sends a batch of images to the analysis endpoint as one
// multipart request and normalizes every outcome into a Result.
package transfer

import (
	"time"

	"github.com/rescale/imghub/internal/history"
)

// Kind tags a Result.
type Kind int

const (
	// KindSuccess means the endpoint returned a 2xx status with a JSON object.
	KindSuccess Kind = iota
	// KindFailure covers transport errors, non-2xx statuses and unparsable bodies.
	KindFailure
)

func (k Kind) String() string {
	if k == KindSuccess {
		return "success"
	}
	return "failure"
}

// Result is the outcome of one submission. Payload is set on success;
// Reason, StatusCode and ErrorType describe a failure.
type Result struct {
	Kind       Kind
	Payload    history.Record
	Reason     string
	StatusCode int
	ErrorType  string
	Duration   time.Duration
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Success builds a success result.
func Success(payload history.Record) Result {
	return Result{Kind: KindSuccess, Payload: payload}
}

// Failure builds a failure result.
func Failure(reason string, statusCode int, errorType string) Result {
	return Result{Kind: KindFailure, Reason: reason, StatusCode: statusCode, ErrorType: errorType}
}
