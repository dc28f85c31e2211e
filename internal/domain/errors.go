package domain

import "fmt"

// Kind enumerates the error kinds the engine distinguishes (§7).
type Kind string

const (
	KindValidation          Kind = "Validation"
	KindMemoryNotFound      Kind = "MemoryNotFound"
	KindRelationshipError   Kind = "RelationshipError"
	KindBackendUnavailable  Kind = "BackendUnavailable"
	KindAuthFailure         Kind = "AuthFailure"
	KindUsageLimitExceeded  Kind = "UsageLimitExceeded"
	KindRateLimitExceeded   Kind = "RateLimitExceeded"
	KindCircuitOpen         Kind = "CircuitOpen"
	KindSchemaError         Kind = "SchemaError"
	KindUnsupportedQuery    Kind = "UnsupportedQuery"
)

// Error is the engine's typed error value: a Kind, a message, and an
// optional key-value detail map. It never carries a raw stack trace.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError constructs an Error of the given kind.
func NewError(kind Kind, message string, details map[string]interface{}) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap constructs an Error of the given kind that wraps an underlying cause,
// matching the "%w"-wrapping discipline used throughout the backend layers.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if ok := asError(err, &de); ok {
		return de.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if de, ok := err.(*Error); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
