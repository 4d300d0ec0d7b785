package clients

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind groups failures by how callers should react to them.
type ErrorKind string

const (
	// ErrorKindNone means the error is nil.
	ErrorKindNone ErrorKind = ""

	// ErrorKindTransport covers timeouts, refused connections and 5xx responses. Retried on the idle cadence.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindApplication covers 4xx responses. Never retried automatically.
	ErrorKindApplication ErrorKind = "application"

	// ErrorKindData covers bodies that could not be decoded. Retried like transport errors.
	ErrorKindData ErrorKind = "data"
)

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("API returned status code: %d, response: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API returned status code: %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError is returned when a request could not complete at all.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to make request %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx body is not the JSON we expected.
type DecodeError struct {
	Endpoint string
	Raw      string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to unmarshal response from %s: %v, raw response: %s", e.Endpoint, e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Kind classifies err. Unknown errors count as transport errors so they get retried.
func Kind(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return ErrorKindApplication
		}
		return ErrorKindTransport
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ErrorKindData
	}

	return ErrorKindTransport
}

func IsTransport(err error) bool {
	return Kind(err) == ErrorKindTransport
}

func IsApplication(err error) bool {
	return Kind(err) == ErrorKindApplication
}

func IsData(err error) bool {
	return Kind(err) == ErrorKindData
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
