// Package apperr tags errors with the five kinds from the error handling
// design (validation, not-found, io, plugin, fatal) so the HTTP layer can
// map a kind to a status code without sniffing error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy purposes.
type Kind int

const (
	// KindInternal wraps unclassified I/O or runtime failures.
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindIO
	KindPlugin
	KindFatal
	KindConflict
	KindInvalidMode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "invalid_query"
	case KindNotFound:
		return "not_found"
	case KindIO:
		return "internal"
	case KindPlugin:
		return "internal"
	case KindFatal:
		return "internal"
	case KindConflict:
		return "conflict"
	case KindInvalidMode:
		return "invalid_mode"
	default:
		return "internal"
	}
}

// HTTPStatus maps a Kind to the status code the API layer returns for it
// (spec §6.1 error envelope, §7 propagation policy).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidMode:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	default:
		return 500
	}
}

// Error is a kind-tagged, context-annotated error.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Context
	}
	return fmt.Sprintf("%s: %v", e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a context phrase and a kind to err. If err is nil, Wrap
// returns nil so call sites can do `return apperr.Wrap(...)` unconditionally
// after an `if err != nil` check is not required.
func Wrap(kind Kind, context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Context: context, Err: err}
}

// New creates a kind-tagged error with no wrapped cause.
func New(kind Kind, context string) error {
	return &Error{Kind: kind, Context: context}
}

// KindOf extracts the Kind of err, defaulting to KindInternal if err was
// never tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Various sentinel kinds used by callers that want a plain error value
// without a context phrase (e.g. comparing with errors.Is).
var (
	ErrNotFound      = New(KindNotFound, "not found")
	ErrInvalidQuery  = New(KindValidation, "invalid query")
	ErrInvalidMode   = New(KindInvalidMode, "invalid mode")
	ErrConflict      = New(KindConflict, "conflict")
	ErrAmbiguousHash = New(KindNotFound, "ambiguous hash prefix")
)
