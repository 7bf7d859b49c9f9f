package types

import (
	"errors"
	"fmt"
)

// Code is the closed error taxonomy from the core's error-handling design
// (§7). Every failure that crosses a package boundary in FlexGraph is
// wrapped in an *Error carrying one of these codes.
type Code uint8

const (
	// CodeNotFound is an unknown label, oid, or procedure id.
	CodeNotFound Code = iota
	// CodeDuplicateKey is a re-used primary key in an insert transaction.
	CodeDuplicateKey
	// CodeSchemaConflict is an incompatible redefinition of a label, or a
	// schema incompatible with a loaded snapshot.
	CodeSchemaConflict
	// CodeIncompatibleSnapshot is a snapshot magic or version mismatch.
	CodeIncompatibleSnapshot
	// CodeDurabilityError is a WAL flush failure; the transaction that
	// produced it is demoted to aborted.
	CodeDurabilityError
	// CodeInvalidInput is a malformed procedure payload, unknown property
	// name, or out-of-range id.
	CodeInvalidInput
	// CodeQueryFailed is MAX_RETRY consecutive procedure failures.
	CodeQueryFailed
	// CodeTimeout is a procedure-internal wall-clock budget exceeded; it
	// is not necessarily an error, but callers that want to branch on it
	// can still match this code on results that wrap one.
	CodeTimeout
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "NotFound"
	case CodeDuplicateKey:
		return "DuplicateKey"
	case CodeSchemaConflict:
		return "SchemaConflict"
	case CodeIncompatibleSnapshot:
		return "IncompatibleSnapshot"
	case CodeDurabilityError:
		return "DurabilityError"
	case CodeInvalidInput:
		return "InvalidInput"
	case CodeQueryFailed:
		return "QueryFailed"
	case CodeTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is the wrapped-error shape every FlexGraph package returns across
// its public surface: a taxonomy Code, the operation that failed, and
// (optionally) the underlying cause.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so callers
// can write errors.Is(err, types.NewError(types.CodeNotFound, "", nil)) or,
// more idiomatically, errors.Is(err, types.ErrNotFound) style sentinels
// built with sentinel below.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// NewError constructs an *Error.
func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Errorf constructs an *Error with a formatted cause.
func Errorf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the Code carried by err, if any was attached via this
// package, reporting false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// sentinel is a zero-cause error used purely as an errors.Is() target for
// a given code, e.g. errors.Is(err, ErrNotFound).
func sentinel(code Code) *Error { return &Error{Code: code, Op: "sentinel"} }

var (
	ErrNotFound             = sentinel(CodeNotFound)
	ErrDuplicateKey         = sentinel(CodeDuplicateKey)
	ErrSchemaConflict       = sentinel(CodeSchemaConflict)
	ErrIncompatibleSnapshot = sentinel(CodeIncompatibleSnapshot)
	ErrDurabilityError      = sentinel(CodeDurabilityError)
	ErrInvalidInput         = sentinel(CodeInvalidInput)
	ErrQueryFailed          = sentinel(CodeQueryFailed)
	ErrTimeout              = sentinel(CodeTimeout)
)
