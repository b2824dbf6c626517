package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/pkg/marketplace"
)

// MarketplaceSubmitter posts a trip request and returns the marketplace request id
type MarketplaceSubmitter interface {
	SubmitTripRequest(ctx context.Context, req marketplace.TripRequest) (string, error)
}

// ForwardingStore records the forwarding outcome on a booking
type ForwardingStore interface {
	MarkForwarded(ctx context.Context, id uuid.UUID, externalRequestID string, at time.Time) error
}

// ForwardingService relays intake for marketplace-sourced listings to the marketplace.
// Single attempt, no retry: staff can act on the booking whether or not it was forwarded.
type ForwardingService struct {
	client  MarketplaceSubmitter
	store   ForwardingStore
	audit   *AuditService
	ownerID string
	budget  time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

const defaultForwardingBudget = 4 * time.Second

// NewForwardingService creates a new forwarding service. budget bounds the
// marketplace call, which runs before the intake response is written.
func NewForwardingService(client MarketplaceSubmitter, store ForwardingStore, audit *AuditService, ownerID string, budget time.Duration, logger *logrus.Logger) *ForwardingService {
	if budget <= 0 {
		budget = defaultForwardingBudget
	}
	return &ForwardingService{
		client:  client,
		store:   store,
		audit:   audit,
		ownerID: ownerID,
		budget:  budget,
		logger:  logger,
		now:     time.Now,
	}
}

// Name implements PostCommitHook
func (s *ForwardingService) Name() string { return "marketplace_forwarding" }

// InlineBudget implements InlineHook: the intake response reports the forwarding result
func (s *ForwardingService) InlineBudget() time.Duration { return s.budget }

// Handle forwards newly requested bookings on marketplace listings
func (s *ForwardingService) Handle(ctx context.Context, event *BookingEvent) error {
	if event.Type != models.BookingEventRequested || !event.Listing.IsMarketplaceSourced() {
		return nil
	}
	return s.Forward(ctx, event.Booking, event.Listing)
}

// Forward submits one trip request. On success the booking's forwarding fields
// are persisted and updated in place. On failure they stay unset.
func (s *ForwardingService) Forward(ctx context.Context, booking *models.Booking, listing *models.Listing) error {
	if booking.ForwardedToExternal {
		return nil
	}

	req := BuildTripRequest(booking, listing, s.ownerID, s.now())
	fields := logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.ReferenceNumber,
		"listing_id": listing.ID,
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.budget)
	externalID, err := s.client.SubmitTripRequest(submitCtx, req)
	cancel()
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Marketplace forwarding failed")
		s.logAudit(ctx, booking, req, "", err)
		return &BookingError{Kind: KindExternalService, Message: "marketplace forwarding failed", Err: err}
	}

	at := s.now()
	if err := s.store.MarkForwarded(ctx, booking.ID, externalID, at); err != nil {
		s.logger.WithFields(fields).WithError(err).WithField("external_request_id", externalID).
			Error("Forwarded to marketplace but failed to record the request id")
		s.logAudit(ctx, booking, req, externalID, nil)
		return fmt.Errorf("failed to record forwarding: %w", err)
	}

	booking.ExternalRequestID = &externalID
	booking.ForwardedToExternal = true
	booking.ForwardedAt = &at

	s.logger.WithFields(fields).WithField("external_request_id", externalID).Info("Booking forwarded to marketplace")
	s.logAudit(ctx, booking, req, externalID, nil)
	return nil
}

func (s *ForwardingService) logAudit(ctx context.Context, booking *models.Booking, req marketplace.TripRequest, externalID string, forwardErr error) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogForwarding(ctx, booking, req, externalID, forwardErr); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to audit marketplace forwarding")
	}
}

// BuildTripRequest translates a booking and its listing into the marketplace schema
func BuildTripRequest(booking *models.Booking, listing *models.Listing, ownerID string, requestedAt time.Time) marketplace.TripRequest {
	firstName, lastName := splitName(booking.ContactName)

	customer := marketplace.Customer{
		FirstName: firstName,
		LastName:  lastName,
		Phone:     booking.ContactPhone,
	}
	if booking.ContactEmail != nil {
		customer.Email = *booking.ContactEmail
	}

	req := marketplace.TripRequest{
		ClientReference: booking.ReferenceNumber,
		Owner:           marketplace.Owner{ID: ownerID},
		Customer:        customer,
		Journey: marketplace.Journey{
			Legs: []marketplace.Leg{{
				Departure:     toMarketplaceAirport(listing.DepartureAirport),
				Arrival:       toMarketplaceAirport(listing.ArrivalAirport),
				DepartureTime: listing.DepartureAt.UTC(),
				Pax:           booking.SeatsRequested,
			}},
		},
		RequestedAt: requestedAt.UTC(),
	}
	if listing.ExternalID != nil {
		req.ExternalListingID = *listing.ExternalID
	}
	return req
}

func toMarketplaceAirport(a models.Airport) marketplace.Airport {
	return marketplace.Airport{
		Code:      a.Code,
		Name:      a.Name,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

// splitName splits "First Last Names" at the first space
func splitName(fullName string) (firstName, lastName string) {
	parts := strings.SplitN(strings.TrimSpace(fullName), " ", 2)
	firstName = parts[0]
	if len(parts) > 1 {
		lastName = strings.TrimSpace(parts[1])
	}
	return firstName, lastName
}
