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

// maxReferenceAttempts bounds reference number regeneration on collision
const maxReferenceAttempts = 5

const bookingReferenceConstraint = "bookings_reference_number_key"

// BookingRepository handles booking persistence and the transactional transitions
type BookingRepository struct {
	db     *sqlx.DB
	ledger *ListingRepository
}

// NewBookingRepository creates a new BookingRepository.
// ledger is used for the seat side of approve and expire.
func NewBookingRepository(db *sqlx.DB, ledger *ListingRepository) *BookingRepository {
	return &BookingRepository{db: db, ledger: ledger}
}

const bookingColumns = `
	id, reference_number, listing_id, client_id,
	contact_name, contact_email, contact_phone,
	seats_requested, total_price, status,
	rejection_reason, rejection_note,
	payment_deadline, payment_link, payment_receipt_ref, paid_at,
	external_request_id, forwarded_to_external, forwarded_at,
	approved_at, rejected_at, expired_at, created_at, updated_at`

// ============================================================================
// CREATE / READ
// ============================================================================

// Create inserts a PENDING booking. nextReference is called once per attempt
// and should return a longer suffix on later attempts; a collision on
// reference_number retries with a new value.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking, nextReference func(attempt int) string) error {
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusPending
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (
			id, reference_number, listing_id, client_id,
			contact_name, contact_email, contact_phone,
			seats_requested, total_price, status,
			forwarded_to_external, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12)`

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		booking.ReferenceNumber = nextReference(attempt)

		_, err := r.db.ExecContext(ctx, query,
			booking.ID, booking.ReferenceNumber, booking.ListingID, booking.ClientID,
			booking.ContactName, booking.ContactEmail, booking.ContactPhone,
			booking.SeatsRequested, booking.TotalPrice, booking.Status,
			booking.CreatedAt, booking.UpdatedAt,
		)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err, bookingReferenceConstraint) {
			continue
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return ErrDuplicateReference
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return getBooking(ctx, r.db, "id = $1", id)
}

// GetByReference retrieves a booking by its human-readable reference number
func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return getBooking(ctx, r.db, "reference_number = $1", reference)
}

func getBooking(ctx context.Context, q sqlx.QueryerContext, where string, arg interface{}) (*models.Booking, error) {
	var booking models.Booking
	err := sqlx.GetContext(ctx, q, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListExpiredApproved returns APPROVED bookings whose payment deadline is before now
func (r *BookingRepository) ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1 AND payment_deadline < $2
		ORDER BY payment_deadline
		LIMIT $3`, models.BookingStatusApproved, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	return bookings, nil
}

// ============================================================================
// STATUS TRANSITIONS
// ============================================================================

// transition moves a booking from -> to with a compare-and-swap on status
func transition(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, from, to models.BookingStatus, set map[string]interface{}, extraGuard string, guardArgs ...interface{}) error {
	if err := from.ValidateTransition(to); err != nil {
		return err
	}
	if set == nil {
		set = map[string]interface{}{}
	}
	set["status"] = to

	ok, err := compareAndSwap(ctx, q, casUpdate{
		table:       "bookings",
		id:          id,
		guardColumn: "status",
		expected:    from,
		set:         set,
		extraGuard:  extraGuard,
		guardArgs:   guardArgs,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrStatusConflict
	}
	return nil
}

// Approve moves a PENDING booking to APPROVED and reserves its seats in one transaction.
// Either both writes commit or neither does.
func (r *BookingRepository) Approve(ctx context.Context, upd models.ApprovalUpdate) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin approval: %w", err)
	}
	defer tx.Rollback()

	err = transition(ctx, tx, upd.BookingID, models.BookingStatusPending, models.BookingStatusApproved,
		map[string]interface{}{
			"total_price":      upd.TotalPrice,
			"payment_deadline": upd.PaymentDeadline,
			"payment_link":     upd.PaymentLink,
			"approved_at":      upd.ApprovedAt,
		}, "")
	if err != nil {
		return nil, err
	}

	if err := r.ledger.Reserve(ctx, tx, upd.ListingID, upd.Seats); err != nil {
		return nil, err
	}

	booking, err := getBooking(ctx, tx, "id = $1", upd.BookingID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return booking, nil
}

// Reject moves a PENDING booking to REJECTED. No seats were reserved, so the ledger is untouched.
func (r *BookingRepository) Reject(ctx context.Context, id uuid.UUID, reason models.RejectionReason, note *string, at time.Time) (*models.Booking, error) {
	err := transition(ctx, r.db, id, models.BookingStatusPending, models.BookingStatusRejected,
		map[string]interface{}{
			"rejection_reason": reason,
			"rejection_note":   note,
			"rejected_at":      at,
		}, "")
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// AttachReceipt records a payment receipt reference on an APPROVED booking
func (r *BookingRepository) AttachReceipt(ctx context.Context, id uuid.UUID, receiptRef string) (*models.Booking, error) {
	ok, err := compareAndSwap(ctx, r.db, casUpdate{
		table:       "bookings",
		id:          id,
		guardColumn: "status",
		expected:    models.BookingStatusApproved,
		set:         map[string]interface{}{"payment_receipt_ref": receiptRef},
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

// ConfirmPayment moves an APPROVED booking with a receipt to PAID
func (r *BookingRepository) ConfirmPayment(ctx context.Context, id uuid.UUID, at time.Time) (*models.Booking, error) {
	err := transition(ctx, r.db, id, models.BookingStatusApproved, models.BookingStatusPaid,
		map[string]interface{}{"paid_at": at},
		"payment_receipt_ref IS NOT NULL")
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Expire moves an APPROVED booking past its deadline to EXPIRED and restores
// its seats in one transaction. A booking that already left APPROVED yields
// ErrStatusConflict and the ledger is not touched, so repeated sweeps restore once.
func (r *BookingRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin expiry: %w", err)
	}
	defer tx.Rollback()

	err = transition(ctx, tx, id, models.BookingStatusApproved, models.BookingStatusExpired,
		map[string]interface{}{"expired_at": now},
		"payment_deadline < $1", now)
	if err != nil {
		return nil, err
	}

	booking, err := getBooking(ctx, tx, "id = $1", id)
	if err != nil {
		return nil, err
	}

	if err := r.ledger.Restore(ctx, tx, booking.ListingID, booking.SeatsRequested); err != nil {
		return nil, fmt.Errorf("failed to restore seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expiry: %w", err)
	}
	return booking, nil
}

// ============================================================================
// FORWARDING
// ============================================================================

// MarkForwarded stores the marketplace correlation id. It only succeeds once per booking.
func (r *BookingRepository) MarkForwarded(ctx context.Context, id uuid.UUID, externalRequestID string, at time.Time) error {
	ok, err := compareAndSwap(ctx, r.db, casUpdate{
		table:       "bookings",
		id:          id,
		guardColumn: "forwarded_to_external",
		expected:    false,
		set: map[string]interface{}{
			"external_request_id":   externalRequestID,
			"forwarded_to_external": true,
			"forwarded_at":          at,
		},
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrStatusConflict
	}
	return nil
}
