package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// ListingRepository reads listings and owns the seat ledger.
// available_seats is only ever written through Reserve and Restore.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new ListingRepository
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingSelect = `
	SELECT
		l.id, l.departure_at, l.aircraft_type, l.total_seats, l.available_seats,
		l.price_mode, l.price_usd, l.status, l.source, l.operator_id, l.external_id,
		l.created_at, l.updated_at,
		d.code AS "dep.code", d.name AS "dep.name", d.city AS "dep.city",
		d.latitude AS "dep.latitude", d.longitude AS "dep.longitude",
		a.code AS "arr.code", a.name AS "arr.name", a.city AS "arr.city",
		a.latitude AS "arr.latitude", a.longitude AS "arr.longitude"
	FROM listings l
	JOIN airports d ON d.code = l.departure_airport
	JOIN airports a ON a.code = l.arrival_airport`

// GetByID retrieves a listing with its route airports
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, listingSelect+` WHERE l.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// ============================================================================
// SEAT LEDGER
// ============================================================================

// Reserve takes seats from a listing in a single conditional UPDATE.
// A listing that reaches zero seats is closed in the same statement.
// q may be the pool or a transaction.
func (r *ListingRepository) Reserve(ctx context.Context, q sqlx.ExtContext, listingID uuid.UUID, seats int) error {
	if seats < 1 {
		return fmt.Errorf("reserve: seats must be positive, got %d", seats)
	}

	ok, err := compareAndSwap(ctx, q, casUpdate{
		table: "listings",
		id:    listingID,
		set: map[string]interface{}{
			"available_seats": sqlExpr(fmt.Sprintf("available_seats - %d", seats)),
			"status": sqlExpr(fmt.Sprintf(
				"CASE WHEN available_seats - %d = 0 THEN '%s' ELSE status END",
				seats, models.ListingStatusClosed)),
		},
		extraGuard: fmt.Sprintf("available_seats >= $1 AND status IN ('%s', '%s') AND departure_at > NOW()",
			models.ListingStatusPublished, models.ListingStatusOpen),
		guardArgs: []interface{}{seats},
	})
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return r.explainReserveMiss(ctx, q, listingID, seats)
}

// explainReserveMiss works out why a reserve matched no row. A listing closed
// because it sold out reports missing seats rather than a closed listing.
func (r *ListingRepository) explainReserveMiss(ctx context.Context, q sqlx.QueryerContext, listingID uuid.UUID, seats int) error {
	var state struct {
		Status         models.ListingStatus `db:"status"`
		DepartureAt    time.Time            `db:"departure_at"`
		AvailableSeats int                  `db:"available_seats"`
	}
	err := sqlx.GetContext(ctx, q, &state,
		`SELECT status, departure_at, available_seats FROM listings WHERE id = $1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read listing state: %w", err)
	}

	switch {
	case !state.DepartureAt.After(time.Now()):
		return ErrListingNotBookable
	case state.AvailableSeats < seats:
		return ErrInsufficientSeats
	case !state.Status.IsBookable():
		return ErrListingNotBookable
	default:
		// changed between the update and this read
		return ErrInsufficientSeats
	}
}

// Restore gives seats back to a listing, capped at total_seats.
// A listing closed because it sold out reopens if it has not departed.
// Callers must restore at most once per reservation.
func (r *ListingRepository) Restore(ctx context.Context, q sqlx.ExtContext, listingID uuid.UUID, seats int) error {
	if seats < 1 {
		return fmt.Errorf("restore: seats must be positive, got %d", seats)
	}

	ok, err := compareAndSwap(ctx, q, casUpdate{
		table: "listings",
		id:    listingID,
		set: map[string]interface{}{
			"available_seats": sqlExpr(fmt.Sprintf("LEAST(total_seats, available_seats + %d)", seats)),
			"status": sqlExpr(fmt.Sprintf(
				"CASE WHEN status = '%s' AND available_seats = 0 AND departure_at > NOW() THEN '%s' ELSE status END",
				models.ListingStatusClosed, models.ListingStatusOpen)),
		},
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
