package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned when a conditional status update matched no row
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrInsufficientSeats is returned when a reserve would take a listing below zero
	ErrInsufficientSeats = errors.New("insufficient seats available")

	// ErrListingNotBookable is returned when the listing status forbids reserving seats
	ErrListingNotBookable = errors.New("listing is not open for booking")

	// ErrDuplicateReference is returned when every generated reference number collided
	ErrDuplicateReference = errors.New("could not allocate a unique reference number")
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports a unique constraint failure from either driver.
// constraint may be empty to match any unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode &&
			(constraint == "" || pqErr.Constraint == constraint)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode &&
			(constraint == "" || pgErr.ConstraintName == constraint)
	}

	return false
}
