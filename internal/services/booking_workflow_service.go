package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// BookingWorkflowService drives staff and system transitions of a booking:
// approve, reject, attach receipt, confirm payment, expire.
type BookingWorkflowService struct {
	bookings      BookingStore
	listings      ListingStore
	payments      *PaymentLinkService
	paymentWindow time.Duration
	hooks         *hookRunner
	logger        *logrus.Logger
	now           func() time.Time
}

// NewBookingWorkflowService creates a new workflow service
func NewBookingWorkflowService(
	bookings BookingStore,
	listings ListingStore,
	payments *PaymentLinkService,
	paymentWindow time.Duration,
	logger *logrus.Logger,
	hooks ...PostCommitHook,
) *BookingWorkflowService {
	return &BookingWorkflowService{
		bookings:      bookings,
		listings:      listings,
		payments:      payments,
		paymentWindow: paymentWindow,
		hooks:         newHookRunner(logger, hooks...),
		logger:        logger,
		now:           time.Now,
	}
}

// SetHookDispatcher moves background post-commit hooks off the request path
func (s *BookingWorkflowService) SetHookDispatcher(dispatcher *HookDispatcher) {
	s.hooks.dispatcher = dispatcher
}

// GetBooking returns a booking the actor is allowed to see
func (s *BookingWorkflowService) GetBooking(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error) {
	booking, _, err := s.load(ctx, id, actor)
	return booking, err
}

// Approve commits seats and opens the payment window. A CONTACT listing needs an
// explicit price; a FIXED listing keeps its quoted price unless one is given.
func (s *BookingWorkflowService) Approve(ctx context.Context, id uuid.UUID, req models.ApproveBookingRequest, actor models.Actor) (*models.Booking, error) {
	booking, listing, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(booking, models.BookingStatusPending); err != nil {
		return nil, err
	}

	price := booking.TotalPrice
	switch {
	case req.TotalPrice != nil:
		if *req.TotalPrice <= 0 {
			return nil, newError(KindValidation, "totalPrice must be greater than 0")
		}
		price = *req.TotalPrice
	case listing.PriceMode == models.PriceModeContact:
		return nil, newError(KindValidation, "price required")
	case price <= 0:
		price = listing.QuotePrice()
	}

	now := s.now()
	link, err := s.payments.BuildLink(booking, price)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment link: %w", err)
	}

	approved, err := s.bookings.Approve(ctx, models.ApprovalUpdate{
		BookingID:       booking.ID,
		ListingID:       listing.ID,
		Seats:           booking.SeatsRequested,
		TotalPrice:      price,
		PaymentDeadline: now.Add(s.paymentWindow),
		PaymentLink:     link,
		ApprovedAt:      now,
	})
	if err != nil {
		return nil, s.transitionError(err, "booking not pending")
	}

	s.logTransition(approved, actor, "Booking approved")
	s.hooks.run(ctx, newBookingEvent(models.BookingEventApproved, approved, listing, actor, now))
	return approved, nil
}

// Reject closes a PENDING booking with a reason from the fixed list. No seats were held.
func (s *BookingWorkflowService) Reject(ctx context.Context, id uuid.UUID, req models.RejectBookingRequest, actor models.Actor) (*models.Booking, error) {
	if req.RejectionReason == "" {
		return nil, newError(KindValidation, "rejectionReason is required")
	}
	if !req.RejectionReason.IsValid() {
		return nil, newError(KindValidation, "invalid rejectionReason %q", req.RejectionReason)
	}

	var note *string
	if req.RejectionNote != nil {
		if trimmed := strings.TrimSpace(*req.RejectionNote); trimmed != "" {
			note = &trimmed
		}
	}

	booking, listing, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(booking, models.BookingStatusPending); err != nil {
		return nil, err
	}

	now := s.now()
	rejected, err := s.bookings.Reject(ctx, booking.ID, req.RejectionReason, note, now)
	if err != nil {
		return nil, s.transitionError(err, "booking not pending")
	}

	s.logTransition(rejected, actor, "Booking rejected")
	s.hooks.run(ctx, newBookingEvent(models.BookingEventRejected, rejected, listing, actor, now))
	return rejected, nil
}

// AttachPaymentReceipt records the receipt reference staff verified for an APPROVED booking
func (s *BookingWorkflowService) AttachPaymentReceipt(ctx context.Context, id uuid.UUID, receiptRef string, actor models.Actor) (*models.Booking, error) {
	receiptRef = strings.TrimSpace(receiptRef)
	if receiptRef == "" {
		return nil, newError(KindValidation, "receiptReference is required")
	}

	booking, listing, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(booking, models.BookingStatusApproved); err != nil {
		return nil, err
	}

	updated, err := s.bookings.AttachReceipt(ctx, booking.ID, receiptRef)
	if err != nil {
		return nil, s.transitionError(err, "booking not approved")
	}

	s.hooks.run(ctx, newBookingEvent(models.BookingEventReceiptAttached, updated, listing, actor, s.now()))
	return updated, nil
}

// ConfirmPayment moves an APPROVED booking with an attached receipt to PAID
func (s *BookingWorkflowService) ConfirmPayment(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error) {
	booking, listing, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(booking, models.BookingStatusApproved); err != nil {
		return nil, err
	}
	if booking.PaymentReceiptRef == nil {
		return nil, newError(KindValidation, "payment receipt required")
	}

	now := s.now()
	paid, err := s.bookings.ConfirmPayment(ctx, booking.ID, now)
	if err != nil {
		return nil, s.transitionError(err, "booking not approved")
	}

	s.logTransition(paid, actor, "Payment confirmed")
	s.hooks.run(ctx, newBookingEvent(models.BookingEventPaid, paid, listing, actor, now))
	return paid, nil
}

// Expire is the system transition for an APPROVED booking past its payment
// deadline. Seats are restored in the same transaction as the status change,
// so a second call for the same booking fails with InvalidTransition.
func (s *BookingWorkflowService) Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	actor := models.SystemActor()
	booking, listing, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expired, err := s.bookings.Expire(ctx, booking.ID, now)
	if err != nil {
		return nil, s.transitionError(err, "booking not approved or not past its payment deadline")
	}

	s.logTransition(expired, actor, "Booking expired")
	s.hooks.run(ctx, newBookingEvent(models.BookingEventExpired, expired, listing, actor, now))
	return expired, nil
}

// load fetches the booking and its listing and enforces operator ownership
func (s *BookingWorkflowService) load(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, *models.Listing, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, translateStoreError(err, "booking not found")
	}

	listing, err := s.listings.GetByID(ctx, booking.ListingID)
	if err != nil {
		return nil, nil, translateStoreError(err, "listing not found")
	}

	if err := authorize(actor, listing); err != nil {
		return nil, nil, err
	}
	return booking, listing, nil
}

// authorize lets admins and the system act on any booking and operators only on their own listings
func authorize(actor models.Actor, listing *models.Listing) error {
	switch actor.Role {
	case models.ActorRoleAdmin, models.ActorRoleSystem:
		return nil
	case models.ActorRoleOperator:
		if actor.OperatorID != nil && listing.OperatorID != nil && *actor.OperatorID == *listing.OperatorID {
			return nil
		}
	}
	return newError(KindForbidden, "not allowed to act on this booking")
}

// requireStatus is the early guard; the store's compare-and-swap is the authoritative one
func requireStatus(booking *models.Booking, expected models.BookingStatus) error {
	if booking.Status == expected {
		return nil
	}
	if booking.Status.IsTerminal() {
		return newError(KindInvalidTransition, "booking already %s and can no longer change", strings.ToLower(string(booking.Status)))
	}
	return newError(KindInvalidTransition, "booking not %s (status %s)", strings.ToLower(string(expected)), booking.Status)
}

func (s *BookingWorkflowService) transitionError(err error, conflictMsg string) error {
	translated := translateStoreError(err, "booking not found")
	if be, ok := translated.(*BookingError); ok && be.Kind == KindInvalidTransition {
		be.Message = conflictMsg
	}
	return translated
}

func (s *BookingWorkflowService) logTransition(booking *models.Booking, actor models.Actor, msg string) {
	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.ReferenceNumber,
		"status":     booking.Status,
		"actor_role": actor.Role,
	}).Info(msg)
}
