package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies why a registry call failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindRateLimited
	KindTransient
	KindDeprecated
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindDeprecated:
		return "deprecated"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the tagged failure every registry client returns for expected
// failure modes. Status is the HTTP status, or 0 for network-layer failures.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	API     string
	// RetryAfter is the server-requested cool-down of a rate-limited call.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.API != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.API, e.Message, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// KindForStatus maps an HTTP status onto the failure taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == 0:
		return KindTransient
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusGone:
		return KindDeprecated
	case status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// NewError builds an Error whose kind follows from status.
func NewError(api string, status int, message string) *Error {
	return &Error{Kind: KindForStatus(status), Status: status, Message: message, API: api}
}

// NotFound builds a NotFound error.
func NotFound(api, message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message, API: api}
}

// Malformed builds a Malformed error. Malformed input never has a status.
func Malformed(api, message string) *Error {
	return &Error{Kind: KindMalformed, Message: message, API: api}
}

// AsError converts any error into an *Error. Context deadlines and network
// failures become Transient, JSON decoding failures Malformed.
func AsError(api string, err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return &Error{Kind: KindTransient, Message: err.Error(), API: api}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return &Error{Kind: KindMalformed, Message: err.Error(), API: api}
	default:
		return &Error{Kind: KindUnknown, Message: err.Error(), API: api}
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsRateLimitError reports 429-style failures. Clients with extra rate-limit
// signals (403 with zero remaining) tag those as KindRateLimited themselves.
func IsRateLimitError(err error) bool {
	return IsKind(err, KindRateLimited)
}

// IsRetryableError is true for rate limits, 5xx and network-layer failures.
func IsRetryableError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindRateLimited, KindTransient:
		return true
	default:
		return false
	}
}
