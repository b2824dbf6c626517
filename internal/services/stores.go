package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// ListingStore is the read side of the inventory ledger.
// Reserve and restore run inside BookingStore transitions.
type ListingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ClientStore resolves clients by phone identity
type ClientStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Client, error)
	CreateIfAbsent(ctx context.Context, client *models.Client) (*models.Client, bool, error)
	UpdateEmail(ctx context.Context, clientID uuid.UUID, email string) error
}

// BookingStore persists bookings. Every transition is a compare-and-swap on status;
// a lost race returns database.ErrStatusConflict.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking, nextReference func(attempt int) string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error)

	Approve(ctx context.Context, upd models.ApprovalUpdate) (*models.Booking, error)
	Reject(ctx context.Context, id uuid.UUID, reason models.RejectionReason, note *string, at time.Time) (*models.Booking, error)
	AttachReceipt(ctx context.Context, id uuid.UUID, receiptRef string) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, at time.Time) (*models.Booking, error)
	Expire(ctx context.Context, id uuid.UUID, now time.Time) (*models.Booking, error)
	MarkForwarded(ctx context.Context, id uuid.UUID, externalRequestID string, at time.Time) error
}

// ActivityLogStore appends audit records
type ActivityLogStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

// RecipientStore resolves staff notification targets
type RecipientStore interface {
	ListActiveAdmins(ctx context.Context) ([]models.Recipient, error)
	GetOperator(ctx context.Context, operatorID uuid.UUID) (*models.Recipient, error)
}
