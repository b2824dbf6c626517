package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/internal/utils"
)

const targetTypeBooking = "booking"

// AuditService writes the activity log for booking transitions and forwarding attempts
type AuditService struct {
	store  ActivityLogStore
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store ActivityLogStore, logger *logrus.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// Name implements PostCommitHook
func (s *AuditService) Name() string { return "activity_log" }

// Handle records one activity entry per committed transition
func (s *AuditService) Handle(ctx context.Context, event *BookingEvent) error {
	b := event.Booking
	details := models.ActivityMetadata{
		"reference_number": b.ReferenceNumber,
		"listing_id":       b.ListingID,
		"status":           b.Status,
		"event_id":         event.ID,
	}

	var action models.ActivityAction
	var description string

	switch event.Type {
	case models.BookingEventRequested:
		action = models.ActivityQuoteRequested
		description = fmt.Sprintf("Quote request %s for %d seat(s)", b.ReferenceNumber, b.SeatsRequested)
		details["client_id"] = b.ClientID
		details["seats_requested"] = b.SeatsRequested
		details["total_price"] = b.TotalPrice
	case models.BookingEventApproved:
		action = models.ActivityBookingApproved
		description = fmt.Sprintf("Booking %s approved at %.2f", b.ReferenceNumber, b.TotalPrice)
		details["total_price"] = b.TotalPrice
		details["seats_reserved"] = b.SeatsRequested
		details["payment_deadline"] = b.PaymentDeadline
	case models.BookingEventRejected:
		action = models.ActivityBookingRejected
		description = fmt.Sprintf("Booking %s rejected", b.ReferenceNumber)
		details["rejection_reason"] = b.RejectionReason
		details["rejection_note"] = b.RejectionNote
	case models.BookingEventReceiptAttached:
		action = models.ActivityReceiptAttached
		description = fmt.Sprintf("Payment receipt attached to %s", b.ReferenceNumber)
		details["payment_receipt_ref"] = b.PaymentReceiptRef
	case models.BookingEventPaid:
		action = models.ActivityPaymentConfirmed
		description = fmt.Sprintf("Payment confirmed for %s", b.ReferenceNumber)
		details["paid_at"] = b.PaidAt
		details["payment_receipt_ref"] = b.PaymentReceiptRef
	case models.BookingEventExpired:
		action = models.ActivityBookingExpired
		description = fmt.Sprintf("Payment window for %s lapsed", b.ReferenceNumber)
		details["seats_restored"] = b.SeatsRequested
		details["payment_deadline"] = b.PaymentDeadline
	default:
		return fmt.Errorf("no activity action for event %s", event.Type)
	}

	return s.write(ctx, event.Actor, action, b, description, details)
}

// LogForwarding records a marketplace forwarding attempt with the full outbound payload
func (s *AuditService) LogForwarding(ctx context.Context, booking *models.Booking, payload interface{}, externalRequestID string, forwardErr error) error {
	details := models.ActivityMetadata{
		"reference_number": booking.ReferenceNumber,
		"payload":          payload,
	}

	action := models.ActivityForwardSucceeded
	description := fmt.Sprintf("Forwarded %s to marketplace as %s", booking.ReferenceNumber, externalRequestID)
	if forwardErr != nil {
		action = models.ActivityForwardFailed
		description = fmt.Sprintf("Forwarding %s to marketplace failed", booking.ReferenceNumber)
		details["error"] = forwardErr.Error()
	} else {
		details["external_request_id"] = externalRequestID
	}

	return s.write(ctx, models.SystemActor(), action, booking, description, details)
}

func (s *AuditService) write(ctx context.Context, actor models.Actor, action models.ActivityAction, booking *models.Booking, description string, details models.ActivityMetadata) error {
	if actor.IPAddress != "" {
		details["ip_address"] = actor.IPAddress
	}
	if actor.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(actor.UserAgent)
	}
	if actor.OperatorID != nil {
		details["operator_id"] = *actor.OperatorID
	}

	entry := &models.ActivityLog{
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Action:      action,
		TargetType:  targetTypeBooking,
		TargetID:    booking.ID,
		Description: description,
		Metadata:    details,
	}

	if err := s.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to log %s: %w", action, err)
	}

	s.logger.WithFields(logrus.Fields{
		"action":     action,
		"booking_id": booking.ID,
		"actor_role": actor.Role,
	}).Debug("Activity logged")
	return nil
}
