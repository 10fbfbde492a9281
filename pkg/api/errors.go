package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// TransportKind classifies failures where no HTTP response was received.
type TransportKind string

const (
	// KindAborted means the attempt timed out or the connection was cut.
	KindAborted TransportKind = "connection aborted"
	// KindUnreachable means the server could not be reached at all.
	KindUnreachable TransportKind = "network unreachable"
)

// TransportError is returned when an attempt produced no HTTP response.
type TransportError struct {
	Kind   TransportKind
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError represents a response with status >= 400.
type HTTPError struct {
	StatusCode int
	// Message is the backend's "message" field, if the body carried one.
	Message string
	Body    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	case e.Body != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// ParseError is returned when a successful response body cannot be decoded.
type ParseError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response (status %d): %v", e.StatusCode, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// classifyTransport turns an http.Client.Do failure into a TransportError.
func classifyTransport(method, rawURL string, err error) error {
	kind := KindUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindAborted
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return &TransportError{Kind: kind, Method: method, URL: rawURL, Err: err}
}

// IsAborted reports whether err is a timed-out or aborted attempt.
func IsAborted(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == KindAborted
}

// IsUnreachable reports whether err means the server could not be reached.
func IsUnreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == KindUnreachable
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsRetryable returns true for the failures the retrier recovers from:
// aborted or unreachable transport errors and HTTP 404.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	return IsNotFound(err)
}

// wantsWake reports whether a failure suggests a dormant backend that a
// probe to the server root might wake.
func wantsWake(err error) bool {
	return IsAborted(err) || IsNotFound(err)
}
