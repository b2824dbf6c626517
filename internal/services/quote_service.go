package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/database"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/pkg/validator"
)

const quoteReceivedMessage = "Your quote request has been received. Our team will contact you shortly."

// DuplicateGuard suppresses repeat submissions. *SubmissionGuard implements it.
type DuplicateGuard interface {
	Acquire(ctx context.Context, phone string, listingID uuid.UUID) bool
	Release(ctx context.Context, phone string, listingID uuid.UUID)
}

// QuoteService handles public quote request intake
type QuoteService struct {
	listings   ListingStore
	clients    ClientStore
	bookings   BookingStore
	contacts   *validator.ContactValidator
	references *ReferenceGenerator
	guard      DuplicateGuard
	hooks      *hookRunner
	logger     *logrus.Logger
	now        func() time.Time
}

// NewQuoteService creates a new quote service. Hooks run after the booking is stored, in order.
func NewQuoteService(
	listings ListingStore,
	clients ClientStore,
	bookings BookingStore,
	contacts *validator.ContactValidator,
	references *ReferenceGenerator,
	logger *logrus.Logger,
	hooks ...PostCommitHook,
) *QuoteService {
	return &QuoteService{
		listings:   listings,
		clients:    clients,
		bookings:   bookings,
		contacts:   contacts,
		references: references,
		hooks:      newHookRunner(logger, hooks...),
		logger:     logger,
		now:        time.Now,
	}
}

// SetHookDispatcher moves background post-commit hooks off the request path
func (s *QuoteService) SetHookDispatcher(dispatcher *HookDispatcher) {
	s.hooks.dispatcher = dispatcher
}

// SetDuplicateGuard enables duplicate submission suppression
func (s *QuoteService) SetDuplicateGuard(guard DuplicateGuard) {
	s.guard = guard
}

// SubmitQuoteRequest validates a quote request and stores it as a PENDING booking.
// Validation, listing and inventory checks happen before any write. Forwarding,
// audit and notifications run afterwards and never fail the request.
func (s *QuoteService) SubmitQuoteRequest(ctx context.Context, req models.QuoteRequest, actor models.Actor) (*models.QuoteResponse, error) {
	// 1. Input
	listingID, err := uuid.Parse(strings.TrimSpace(req.ListingID))
	if err != nil {
		return nil, newError(KindValidation, "invalid listing id")
	}
	if req.SeatsRequested < 1 {
		return nil, newError(KindValidation, "seatsRequested must be at least 1")
	}

	phone, email, err := s.contacts.Validate(req.ContactInfo.FirstName, req.ContactInfo.LastName, req.ContactInfo.Email, req.ContactInfo.Phone)
	if err != nil {
		return nil, &BookingError{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	contact := models.ContactInfo{
		FirstName: req.ContactInfo.FirstName,
		LastName:  req.ContactInfo.LastName,
		Email:     email,
		Phone:     phone,
	}

	// 2. Listing state
	now := s.now()
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateStoreError(err, "listing not found")
	}
	if !listing.Status.IsBookable() || listing.HasDeparted(now) {
		return nil, newError(KindNotBookable, "listing is not open for booking")
	}

	// 3. Early inventory check; approval re-checks under the ledger guard
	if listing.AvailableSeats < req.SeatsRequested {
		return nil, newError(KindInsufficientInventory, "only %d seat(s) available", listing.AvailableSeats)
	}

	if s.guard != nil && !s.guard.Acquire(ctx, phone, listingID) {
		return nil, newError(KindDuplicateSubmission, "a request for this listing was just submitted from this phone number")
	}

	booking, err := s.createBooking(ctx, listing, contact, req.SeatsRequested)
	if err != nil {
		if s.guard != nil {
			s.guard.Release(ctx, phone, listingID)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.ReferenceNumber,
		"listing_id": listing.ID,
		"seats":      booking.SeatsRequested,
	}).Info("Quote request created")

	// 7-8. Forwarding, audit, notification, event stream
	s.hooks.run(ctx, newBookingEvent(models.BookingEventRequested, booking, listing, actor, now))

	return &models.QuoteResponse{
		BookingID:           booking.ID,
		ReferenceNumber:     booking.ReferenceNumber,
		Message:             quoteReceivedMessage,
		TotalPrice:          booking.TotalPrice,
		ForwardedToExternal: booking.ForwardedToExternal,
		ExternalRequestID:   booking.ExternalRequestID,
	}, nil
}

// createBooking resolves the client, prices the request and inserts the PENDING booking
func (s *QuoteService) createBooking(ctx context.Context, listing *models.Listing, contact models.ContactInfo, seats int) (*models.Booking, error) {
	// 4. Client identity
	client, err := s.resolveClient(ctx, contact)
	if err != nil {
		return nil, err
	}

	// 5-6. Price and persist
	booking := &models.Booking{
		ListingID:      listing.ID,
		ClientID:       client.ID,
		// Stored client name, not the submitted one; a phone keeps its first name
		ContactName:    client.FullName(),
		ContactPhone:   client.Phone,
		SeatsRequested: seats,
		TotalPrice:     listing.QuotePrice(),
	}
	if contact.Email != "" {
		email := contact.Email
		booking.ContactEmail = &email
	}

	if err := s.bookings.Create(ctx, booking, s.references.Next); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

// resolveClient finds or creates the client for a phone number. The stored
// name always wins; only the email may change.
func (s *QuoteService) resolveClient(ctx context.Context, contact models.ContactInfo) (*models.Client, error) {
	existing, err := s.clients.GetByPhone(ctx, contact.Phone)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	if existing == nil {
		candidate, _ := models.MergeClientContact(nil, contact)
		stored, created, err := s.clients.CreateIfAbsent(ctx, &candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		if created {
			return stored, nil
		}
		// Another request created the same phone first
		existing = stored
	}

	merged, changed := models.MergeClientContact(existing, contact)
	if changed && merged.Email != nil {
		if err := s.clients.UpdateEmail(ctx, existing.ID, *merged.Email); err != nil {
			s.logger.WithError(err).WithField("client_id", existing.ID).Warn("Failed to update client email")
			return existing, nil
		}
	}
	return &merged, nil
}
