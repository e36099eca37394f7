package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable classification of a failure returned by the stores.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindDuplicateEmail   Kind = "duplicate_email"
	KindAuthFailed       Kind = "auth_failed"
	KindAlreadyMember    Kind = "already_member"
	KindInvalidAssignee  Kind = "invalid_assignee"
	KindInvalidReference Kind = "invalid_reference"
	KindUnauthorized     Kind = "unauthorized"
	KindInvalid          Kind = "invalid"
	KindInfrastructure   Kind = "infrastructure"
)

// Error carries a Kind, a human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInfrastructure {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind, so callers can
// write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDuplicateEmail   = &Error{Kind: KindDuplicateEmail, Message: "email already registered"}
	ErrAuthFailed       = &Error{Kind: KindAuthFailed, Message: "invalid email or password"}
	ErrAlreadyMember    = &Error{Kind: KindAlreadyMember, Message: "user is already a project member"}
	ErrInvalidAssignee  = &Error{Kind: KindInvalidAssignee, Message: "assignee is not a project member"}
	ErrInvalidReference = &Error{Kind: KindInvalidReference, Message: "reference does not resolve"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Message: "access denied"}
	ErrInvalid          = &Error{Kind: KindInvalid, Message: "invalid input"}
	ErrInfrastructure   = &Error{Kind: KindInfrastructure, Message: "internal error"}
)

// New builds a typed error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Infra wraps a driver or transport failure. A nil err yields nil.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Message: op, Err: err}
}

// KindOf returns the Kind of err. Untyped errors are infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInfrastructure
}
