package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/database"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/pkg/validator"
	"github.com/skyleg/emptyleg-backend/pkg/whatsapp"
)

const notificationTimeLayout = "Jan 2, 2006 15:04 MST"

// outbound is one message addressed to one recipient
type outbound struct {
	recipient string // for logs
	phone     string // as stored, normalized before sending
	body      string
	mediaURL  string
}

// NotificationService fans booking transitions out over WhatsApp.
// Every recipient is dispatched independently; failures are logged and counted.
type NotificationService struct {
	gateway       whatsapp.Gateway
	recipients    RecipientStore
	phones        *validator.PhoneValidator
	publicBaseURL string
	logger        *logrus.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(gateway whatsapp.Gateway, recipients RecipientStore, phones *validator.PhoneValidator, publicBaseURL string, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		gateway:       gateway,
		recipients:    recipients,
		phones:        phones,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Name implements PostCommitHook
func (s *NotificationService) Name() string { return "whatsapp_notifications" }

// Handle sends the client message and, for staff-relevant events, the staff messages
func (s *NotificationService) Handle(ctx context.Context, event *BookingEvent) error {
	var messages []outbound

	if msg, ok := s.clientMessage(event); ok {
		messages = append(messages, msg)
	}

	if body, ok := s.staffMessage(event); ok {
		staff, err := s.ResolveAudience(ctx, event.Listing)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", event.Booking.ID).Error("Failed to resolve notification audience")
		}
		for _, r := range staff {
			messages = append(messages, outbound{recipient: r.Name, phone: r.Phone, body: body})
		}
	}

	failed := 0
	for _, msg := range messages {
		if err := s.dispatch(ctx, msg); err != nil {
			failed++
			s.logger.WithFields(logrus.Fields{
				"booking_id": event.Booking.ID,
				"event":      event.Type,
				"recipient":  msg.recipient,
			}).WithError(err).Warn("Notification failed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d notifications failed", failed, len(messages))
	}
	return nil
}

// ResolveAudience returns the staff who hear about a listing's bookings.
// Marketplace listings and listings without an operator go to every admin;
// operator listings go to that operator only. If the operator record is gone
// the admins are used instead.
func (s *NotificationService) ResolveAudience(ctx context.Context, listing *models.Listing) ([]models.Recipient, error) {
	if listing.IsMarketplaceSourced() || listing.OperatorID == nil {
		return s.recipients.ListActiveAdmins(ctx)
	}

	operator, err := s.recipients.GetOperator(ctx, *listing.OperatorID)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.WithField("operator_id", listing.OperatorID.String()).Warn("Listing operator not found, notifying admins")
		return s.recipients.ListActiveAdmins(ctx)
	}
	if err != nil {
		return nil, err
	}
	return []models.Recipient{*operator}, nil
}

// dispatch normalizes the phone and sends one message, turning panics into errors
func (s *NotificationService) dispatch(ctx context.Context, msg outbound) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("gateway panic: %v", rec)
		}
	}()

	phone, err := s.phones.Validate(msg.phone)
	if err != nil {
		return fmt.Errorf("unusable phone %q: %w", msg.phone, err)
	}

	sid, err := s.gateway.Send(ctx, whatsapp.Message{To: phone, Body: msg.body, MediaURL: msg.mediaURL})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"recipient": msg.recipient,
		"gateway":   s.gateway.GetName(),
		"sid":       sid,
	}).Debug("Notification sent")
	return nil
}

// ConfirmationURL is the public QR confirmation image for a paid booking
func (s *NotificationService) ConfirmationURL(reference string) string {
	return fmt.Sprintf("%s/api/v1/public/bookings/%s/confirmation.png", s.publicBaseURL, reference)
}

func (s *NotificationService) clientMessage(event *BookingEvent) (outbound, bool) {
	b := event.Booking
	msg := outbound{recipient: b.ContactName, phone: b.ContactPhone}
	first, _ := splitName(b.ContactName)
	route := routeLabel(event.Listing)

	switch event.Type {
	case models.BookingEventRequested:
		msg.body = fmt.Sprintf("Hi %s, we received your request %s for %d seat(s) on %s departing %s. We will get back to you shortly.",
			first, b.ReferenceNumber, b.SeatsRequested, route, formatTime(event.Listing.DepartureAt))
	case models.BookingEventApproved:
		msg.body = fmt.Sprintf("Good news %s! Your request %s on %s is approved. Total: %.2f USD. Please pay before %s: %s",
			first, b.ReferenceNumber, route, b.TotalPrice, formatTimePtr(b.PaymentDeadline), derefString(b.PaymentLink))
	case models.BookingEventRejected:
		msg.body = fmt.Sprintf("Hi %s, unfortunately your request %s on %s could not be confirmed: %s.",
			first, b.ReferenceNumber, route, rejectionLabel(b.RejectionReason))
		if b.RejectionNote != nil && strings.TrimSpace(*b.RejectionNote) != "" {
			msg.body += " " + strings.TrimSpace(*b.RejectionNote)
		}
	case models.BookingEventPaid:
		msg.body = fmt.Sprintf("Payment received for %s. You are confirmed on %s departing %s. Your boarding confirmation is attached.",
			b.ReferenceNumber, route, formatTime(event.Listing.DepartureAt))
		msg.mediaURL = s.ConfirmationURL(b.ReferenceNumber)
	case models.BookingEventExpired:
		msg.body = fmt.Sprintf("Hi %s, the payment window for %s has closed and the seats were released. Contact us if you still want to fly.",
			first, b.ReferenceNumber)
	default:
		return outbound{}, false
	}
	return msg, true
}

func (s *NotificationService) staffMessage(event *BookingEvent) (string, bool) {
	b := event.Booking
	route := routeLabel(event.Listing)

	switch event.Type {
	case models.BookingEventRequested:
		return fmt.Sprintf("New quote request %s: %s (%s) wants %d seat(s) on %s departing %s.",
			b.ReferenceNumber, b.ContactName, b.ContactPhone, b.SeatsRequested, route, formatTime(event.Listing.DepartureAt)), true
	case models.BookingEventPaid:
		return fmt.Sprintf("Booking %s on %s is paid (%.2f USD).", b.ReferenceNumber, route, b.TotalPrice), true
	case models.BookingEventExpired:
		return fmt.Sprintf("Booking %s on %s expired unpaid. %d seat(s) returned to the listing.", b.ReferenceNumber, route, b.SeatsRequested), true
	default:
		return "", false
	}
}

func routeLabel(l *models.Listing) string {
	return l.DepartureAirport.Code + "-" + l.ArrivalAirport.Code
}

func rejectionLabel(r *models.RejectionReason) string {
	if r == nil {
		return models.RejectionOther.Label()
	}
	return r.Label()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(notificationTimeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
