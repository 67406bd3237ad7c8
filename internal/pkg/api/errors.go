package api

import (
	"errors"
	"fmt"
)

// ErrKind is a machine readable rejection kind
type ErrKind int

const (
	// KindInvalidPeriod - submitted period does not match the active window
	KindInvalidPeriod ErrKind = iota + 1
	// KindDuplicateSubmission - a final report already exists for ward and period
	KindDuplicateSubmission
	// KindMissingDeclineReason - decline without reason
	KindMissingDeclineReason
	// KindNotFound - referenced record is absent
	KindNotFound
	// KindInvalidTransition - requested state change is not allowed
	KindInvalidTransition
	// KindValidation - malformed input
	KindValidation
)

var kindName = map[ErrKind]string{KindInvalidPeriod: "InvalidPeriod", KindDuplicateSubmission: "DuplicateSubmission",
	KindMissingDeclineReason: "MissingDeclineReason", KindNotFound: "NotFound",
	KindInvalidTransition: "InvalidTransition", KindValidation: "Validation"}

func (k ErrKind) String() string {
	return kindName[k]
}

var (
	// ErrDuplicate is returned by storage when a uniqueness constraint fires
	ErrDuplicate = errors.New("duplicate")
	// ErrDuplicatePeriod - final report for ward and period exists
	ErrDuplicatePeriod = fmt.Errorf("ward period: %w", ErrDuplicate)
	// ErrDuplicateKey - submission key is already attached to a report
	ErrDuplicateKey = fmt.Errorf("submission key: %w", ErrDuplicate)
	// ErrConcurrentUpdate is returned by an optimistic update when the record version has changed
	ErrConcurrentUpdate = errors.New("record was changed concurrently")
)

// Error is a structured rejection surfaced to callers
type Error struct {
	Kind    ErrKind
	Msg     string
	Details map[string]interface{}
}

// NewError creates rejection
func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// With adds detail to the error
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// KindOf returns kind of a wrapped *Error
func KindOf(err error) (ErrKind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// IsKind checks if err is *Error of the kind
func IsKind(err error, kind ErrKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
