// Package apperr defines the error taxonomy shared by the checkout domain.
//
// Every failure surfaced to a caller carries a Kind (what went wrong, from the
// caller's point of view) and a user-facing message. The Kind decides whether
// the caller should fix its input, retry, or check order history first.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindTransaction Kind = "TRANSACTION_ERROR"
	KindSettlement  Kind = "SETTLEMENT_ERROR"
	KindInternal    Kind = "INTERNAL_ERROR"
)

// Metadata describes how a Kind should be presented to clients.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByKind = map[Kind]Metadata{
	KindValidation: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "validation failed",
	},
	KindNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	KindConflict: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "request conflicts with an operation in progress",
	},
	KindTransaction: {
		// Ambiguous outcome: the order may exist. Clients must check order
		// history instead of resubmitting.
		HTTPStatus:    http.StatusBadGateway,
		PublicMessage: "order could not be confirmed, check your order history before trying again",
	},
	KindSettlement: {
		HTTPStatus:    http.StatusPaymentRequired,
		Retryable:     true,
		PublicMessage: "payment failed",
	},
	KindInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal error",
	},
}

// MetadataFor returns presentation metadata for k. Unknown kinds map to
// KindInternal.
func MetadataFor(k Kind) Metadata {
	if md, ok := metadataByKind[k]; ok {
		return md
	}
	return metadataByKind[KindInternal]
}

// Error is a classified failure with a user-facing message.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap returns an Error of the given kind that keeps err as its cause.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{kind: kind, message: message, cause: err}
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the user-facing message.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by kind and message, so package-level sentinels
// built with New work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.kind == t.kind && e.message == t.message
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf reports the Kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
