// Package apperr defines the typed failures surfaced by the voting service.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	Internal Kind = iota
	Validation
	Malformed
	MissingFields
	CountMismatch
	DuplicateVote
	VotingClosed
	NoRosterData
	Unauthenticated
	Forbidden
	NotFoundOrUnauthorized
	Misconfigured
)

var kindNames = map[Kind]string{
	Internal:               "internal_error",
	Validation:             "validation_error",
	Malformed:              "malformed_payload",
	MissingFields:          "missing_fields",
	CountMismatch:          "count_mismatch",
	DuplicateVote:          "duplicate_vote",
	VotingClosed:           "voting_closed",
	NoRosterData:           "no_roster_data",
	Unauthenticated:        "unauthenticated",
	Forbidden:              "forbidden",
	NotFoundOrUnauthorized: "not_found",
	Misconfigured:          "server_misconfiguration",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case Validation, Malformed, MissingFields, CountMismatch, DuplicateVote, VotingClosed:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFoundOrUnauthorized, NoRosterData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Field names the offending input when known,
// Details carries structured extras (missing field list, expected/received counts).
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Invalid is a validation error on one field.
func Invalid(field, msg string) *Error {
	return &Error{Kind: Validation, Message: msg, Field: field}
}

// MalformedField reports an input that could not be parsed.
func MalformedField(field string, err error) *Error {
	return &Error{Kind: Malformed, Message: "invalid " + field, Field: field, Err: err}
}

// Missing lists every absent required field.
func Missing(kind Kind, fields []string) *Error {
	return &Error{
		Kind:    kind,
		Message: "missing required fields",
		Details: map[string]interface{}{"missing": fields},
	}
}

// Mismatch reports a declared vs received count disagreement.
func Mismatch(expected, received int) *Error {
	return &Error{
		Kind:    CountMismatch,
		Message: fmt.Sprintf("expected %d candidate images, received %d", expected, received),
		Details: map[string]interface{}{"expected": expected, "received": received},
	}
}

// NotFound is the owner-scoped miss: absent and not-yours are indistinguishable.
func NotFound(what string) *Error {
	return &Error{Kind: NotFoundOrUnauthorized, Message: what + " not found"}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// KindOf returns the kind of err, Internal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}
