package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/database"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/pkg/document"
)

// ConfirmationSource loads what a confirmation document is rendered from
type ConfirmationSource interface {
	GetByReference(ctx context.Context, reference string) (*models.Booking, error)
}

// ListingSource loads the listing a booking belongs to
type ListingSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ConfirmationHandler serves QR confirmation images for paid bookings
type ConfirmationHandler struct {
	bookings  ConfirmationSource
	listings  ListingSource
	generator *document.ConfirmationGenerator
	logger    *logrus.Logger
}

// NewConfirmationHandler creates a new ConfirmationHandler
func NewConfirmationHandler(bookings ConfirmationSource, listings ListingSource, generator *document.ConfirmationGenerator, logger *logrus.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{bookings: bookings, listings: listings, generator: generator, logger: logger}
}

// GetConfirmationQR renders the signed boarding confirmation
// @Summary Booking confirmation QR
// @Description PNG QR code for a PAID booking. Linked from the payment confirmation WhatsApp message.
// @Tags Public
// @Produce png
// @Param reference path string true "Booking reference"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]interface{} "No paid booking with this reference"
// @Router /api/v1/public/bookings/{reference}/confirmation.png [get]
func (h *ConfirmationHandler) GetConfirmationQR(c *gin.Context) {
	ctx := c.Request.Context()
	reference := c.Param("reference")

	booking, err := h.bookings.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Confirmation not found"})
			return
		}
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to load booking for confirmation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load confirmation"})
		return
	}

	// Unpaid bookings look the same as unknown ones
	if booking.Status != models.BookingStatusPaid && booking.Status != models.BookingStatusCompleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Confirmation not found"})
		return
	}

	listing, err := h.listings.GetByID(ctx, booking.ListingID)
	if err != nil {
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to load listing for confirmation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load confirmation"})
		return
	}

	png, err := h.generator.GeneratePNG(confirmationFor(booking, listing))
	if err != nil {
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to render confirmation QR")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render confirmation"})
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// VerifyConfirmation checks a scanned confirmation token against the live booking
// @Summary Verify a booking confirmation
// @Description Validates the signed token read from a confirmation QR and reports whether the booking still holds its seats.
// @Tags Public
// @Produce json
// @Param reference path string true "Booking reference"
// @Param token query string true "Token read from the QR code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Token missing, forged or issued for another booking"
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/public/bookings/{reference}/verify [get]
func (h *ConfirmationHandler) VerifyConfirmation(c *gin.Context) {
	ctx := c.Request.Context()
	reference := c.Param("reference")

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	scanned, err := h.generator.Decode(token)
	if err != nil || scanned.Reference != reference {
		fields := logrus.Fields{"reference": reference}
		if errors.Is(err, document.ErrInvalidSignature) {
			h.logger.WithFields(fields).Warn("Confirmation token with a bad signature")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid confirmation token"})
		return
	}

	booking, err := h.bookings.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Confirmation not found"})
			return
		}
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to load booking for verification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify confirmation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       booking.Status.HoldsSeats() && booking.PaidAt != nil,
		"reference":   booking.ReferenceNumber,
		"status":      booking.Status,
		"passenger":   scanned.Passenger,
		"seats":       scanned.Seats,
		"route":       scanned.Route,
		"departureAt": scanned.DepartureAt,
	})
}

func confirmationFor(booking *models.Booking, listing *models.Listing) document.Confirmation {
	confirmation := document.Confirmation{
		Reference:   booking.ReferenceNumber,
		Passenger:   booking.ContactName,
		Seats:       booking.SeatsRequested,
		Route:       listing.DepartureAirport.Code + "-" + listing.ArrivalAirport.Code,
		DepartureAt: listing.DepartureAt.UTC(),
	}
	if booking.PaidAt != nil {
		confirmation.PaidAt = booking.PaidAt.UTC()
	}
	return confirmation
}
