// Package apperr holds the error taxonomy shared by the catalog, order and chat services.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind uint8

const (
	Internal Kind = iota
	Invalid
	Unauthorized
	Forbidden
	NotFound
	Conflict
	InsufficientStock
	UpstreamUnavailable
)

var codes = map[Kind]string{
	Internal:            "internal",
	Invalid:             "invalid_argument",
	Unauthorized:        "unauthorized",
	Forbidden:           "forbidden",
	NotFound:            "not_found",
	Conflict:            "conflict",
	InsufficientStock:   "insufficient_stock",
	UpstreamUnavailable: "upstream_unavailable",
}

// String returns the wire code of the kind.
func (k Kind) String() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Internal]
}

// ParseKind maps a wire code back to its Kind. Unknown codes yield Internal.
func ParseKind(code string) Kind {
	for k, c := range codes {
		if c == code {
			return k
		}
	}
	return Internal
}

// HTTPStatus is the status class every service answers with for a kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case Invalid, InsufficientStock:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case UpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure described in the caller's terms. Message is safe to show
// to clients; Err keeps the underlying cause for logs and errors.Is.
type Error struct {
	Kind      Kind
	Message   string
	Available int // only meaningful for InsufficientStock
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Stock builds the InsufficientStock error reporting the real available amount.
func Stock(available int) *Error {
	return &Error{
		Kind:      InsufficientStock,
		Message:   fmt.Sprintf("out of stock: only %d available", available),
		Available: available,
	}
}

// Annotate prefixes the message of err while keeping its kind and stock count.
func Annotate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	prefix := fmt.Sprintf(format, args...)
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Message: prefix + ": " + e.Error(), Available: e.Available, Err: err}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// KindOf reports the kind of the first *Error in err's chain, Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Transport classifies a failed call to another service. Timeouts and
// connection errors both mean the dependency is unavailable.
func Transport(service string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(UpstreamUnavailable, err, "%s service timed out", service)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(UpstreamUnavailable, err, "%s service timed out", service)
	}
	return Wrap(UpstreamUnavailable, err, "%s service unreachable", service)
}
