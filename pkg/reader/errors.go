package reader

import (
	"fmt"
	"strings"

	"github.com/agentstation/cardmap/pkg/errors"
)

var (
	// ErrTaskFailed is returned when every attempt of a task failed.
	ErrTaskFailed = errors.New("annotation task failed")

	// ErrNoCandidates is returned when no usable model candidate remains.
	ErrNoCandidates = errors.New("no model candidates available")

	// ErrNoObject is returned when a response holds no JSON object.
	ErrNoObject = errors.New("no JSON object in response")
)

// ResponseError reports a response that could not be decoded.
type ResponseError struct {
	Snippet string
	Err     error
}

// Error implements the error interface
func (e *ResponseError) Error() string {
	return fmt.Sprintf("decode response %q: %v", e.Snippet, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ResponseError) Unwrap() error {
	return e.Err
}

// TaskError wraps the last failure of an exhausted task.
type TaskError struct {
	Names    int
	Attempts int
	Last     error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("annotation task of %d names failed after %d attempts: %v", e.Names, e.Attempts, e.Last)
}

// Unwrap returns both the sentinel and the last failure.
func (e *TaskError) Unwrap() []error {
	return []error{ErrTaskFailed, e.Last}
}

// failureKind classifies a candidate failure.
type failureKind int

const (
	failureOther failureKind = iota
	failureNotFound
	failureRateLimited
)

func (k failureKind) String() string {
	switch k {
	case failureNotFound:
		return "not_found"
	case failureRateLimited:
		return "rate_limited"
	}
	return "other"
}

// classify maps a candidate error onto the retry policy. Typed API errors
// are checked first; bare errors fall back to message matching. Decode
// failures quote the model's output and are never matched.
func classify(err error) failureKind {
	var respErr *ResponseError
	switch {
	case errors.IsRateLimited(err):
		return failureRateLimited
	case errors.IsNotFound(err):
		return failureNotFound
	case errors.IsProviderUnavailable(err), errors.IsAPIKeyError(err):
		return failureOther
	case errors.As(err, &respErr), errors.Is(err, ErrNoObject):
		return failureOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"):
		return failureRateLimited
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "not_found"),
		strings.Contains(msg, "not supported"),
		strings.Contains(msg, "404"):
		return failureNotFound
	}
	return failureOther
}
