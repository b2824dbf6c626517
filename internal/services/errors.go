package services

import (
	"errors"
	"fmt"

	"github.com/skyleg/emptyleg-backend/internal/database"
)

// ErrorKind classifies booking workflow failures for callers
type ErrorKind string

const (
	KindValidation            ErrorKind = "validation"
	KindNotFound              ErrorKind = "not_found"
	KindNotBookable           ErrorKind = "not_bookable"
	KindInsufficientInventory ErrorKind = "insufficient_inventory"
	KindInvalidTransition     ErrorKind = "invalid_transition"
	KindForbidden             ErrorKind = "forbidden"
	KindExternalService       ErrorKind = "external_service"
	KindDuplicateSubmission   ErrorKind = "duplicate_submission"
)

// BookingError is a precondition or business-rule failure surfaced to the caller
type BookingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BookingError) Unwrap() error { return e.Err }

// Is matches any BookingError of the same kind, so errors.Is(err, ErrInvalidTransition) works
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// Kind sentinels for errors.Is
var (
	ErrValidation            = &BookingError{Kind: KindValidation}
	ErrNotFound              = &BookingError{Kind: KindNotFound}
	ErrNotBookable           = &BookingError{Kind: KindNotBookable}
	ErrInsufficientInventory = &BookingError{Kind: KindInsufficientInventory}
	ErrInvalidTransition     = &BookingError{Kind: KindInvalidTransition}
	ErrForbidden             = &BookingError{Kind: KindForbidden}
	ErrExternalService       = &BookingError{Kind: KindExternalService}
	ErrDuplicateSubmission   = &BookingError{Kind: KindDuplicateSubmission}
)

func newError(kind ErrorKind, format string, args ...interface{}) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a BookingError, or "" for unclassified errors
func KindOf(err error) ErrorKind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// translateStoreError maps repository sentinels onto booking error kinds.
// Unknown errors are returned unchanged.
func translateStoreError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return newError(KindNotFound, "%s", notFoundMsg)
	case errors.Is(err, database.ErrStatusConflict):
		return &BookingError{Kind: KindInvalidTransition, Message: "booking status changed", Err: err}
	case errors.Is(err, database.ErrInsufficientSeats):
		return &BookingError{Kind: KindInsufficientInventory, Message: "seats no longer available", Err: err}
	case errors.Is(err, database.ErrListingNotBookable):
		return &BookingError{Kind: KindNotBookable, Message: "listing is not open for booking", Err: err}
	default:
		return err
	}
}
