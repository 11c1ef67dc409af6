package domain

import (
	"errors"
	"fmt"
)

// StoreErrorKind classifies a failed write against a user-store backend.
type StoreErrorKind string

const (
	StoreErrAuth          StoreErrorKind = "auth"
	StoreErrMissingSchema StoreErrorKind = "missing_schema"
	StoreErrPermission    StoreErrorKind = "permission"
	StoreErrEncoding      StoreErrorKind = "encoding"
	StoreErrUnknown       StoreErrorKind = "unknown"
)

// StoreError is returned by user-store writes. The message is meant for an
// operator: it names the backend and what to check.
type StoreError struct {
	Kind    StoreErrorKind
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	var hint string
	switch e.Kind {
	case StoreErrAuth:
		hint = "credentials were rejected; check the backend URL and secret key"
	case StoreErrMissingSchema:
		hint = "table or index does not exist; run the migrations for this backend"
	case StoreErrPermission:
		hint = "access denied by a security policy; grant the service role write access"
	case StoreErrEncoding:
		hint = "value contains characters the backend cannot encode"
	default:
		hint = "unexpected backend error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Backend, e.Op, hint, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Backend, e.Op, hint)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError builds a StoreError, keeping an already classified cause as is.
func NewStoreError(kind StoreErrorKind, backend, op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Kind: kind, Backend: backend, Op: op, Err: err}
}

// StoreErrorKindOf returns the kind of a StoreError anywhere in err's chain,
// or the empty string.
func StoreErrorKindOf(err error) StoreErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
