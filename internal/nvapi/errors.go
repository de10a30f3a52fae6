package nvapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies a client failure for retry decisions.
type ErrorKind string

const (
	ErrKindEncoding  ErrorKind = "encoding"
	ErrKindAuth      ErrorKind = "auth"
	ErrKindRateLimit ErrorKind = "rate_limit"
	ErrKindServer    ErrorKind = "server"
	ErrKindNetwork   ErrorKind = "network"
	ErrKindMalformed ErrorKind = "malformed_stream"
	ErrKindCanceled  ErrorKind = "canceled"
)

// APIError is the client's error taxonomy. It carries enough context to
// decide retry eligibility but never holds partial response text; partial
// output is surfaced separately so it is not lost.
type APIError struct {
	Kind       ErrorKind
	Status     int           // HTTP status, when applicable
	Message    string
	RetryAfter time.Duration // provider hint on rate limits, 0 if absent
	Detail     string        // offending frame for malformed streams
	Cause      error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("nvapi: %s [%d]: %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("nvapi: %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Retryable reports whether the policy may attempt this failure again.
// Network failures are only retryable before the first delta has been
// delivered; the facade enforces that separately.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case ErrKindRateLimit, ErrKindServer, ErrKindNetwork:
		return true
	default:
		return false
	}
}

func encodingErr(msg string) *APIError {
	return &APIError{Kind: ErrKindEncoding, Message: msg}
}

func malformedErr(msg, detail string, cause error) *APIError {
	return &APIError{Kind: ErrKindMalformed, Message: msg, Detail: detail, Cause: cause}
}

// errorEnvelope is the JSON error body returned on non-200 responses.
type errorEnvelope struct {
	Error *errorPayload `json:"error"`
	// Some deployments return a flat {"detail": "..."} instead.
	Detail string `json:"detail"`
}

// classifyStatus maps a non-200 response to the error taxonomy.
func classifyStatus(status int, body []byte, retryAfter string) *APIError {
	msg := http.StatusText(status)
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		} else if env.Detail != "" {
			msg = env.Detail
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Kind: ErrKindAuth, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		e := &APIError{Kind: ErrKindRateLimit, Status: status, Message: msg}
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
		return e
	case status >= 500:
		return &APIError{Kind: ErrKindServer, Status: status, Message: msg}
	default:
		// Remaining 4xx means the provider rejected the request itself;
		// retrying the same payload cannot succeed.
		return &APIError{Kind: ErrKindEncoding, Status: status, Message: msg}
	}
}

// classifyTransport maps a transport-level failure to the taxonomy.
// Context cancellation is a deterministic stop, not an error condition.
func classifyTransport(err error) *APIError {
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: ErrKindCanceled, Message: "request canceled", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: ErrKindNetwork, Message: "request deadline exceeded", Cause: err}
	}
	return &APIError{Kind: ErrKindNetwork, Message: err.Error(), Cause: err}
}
