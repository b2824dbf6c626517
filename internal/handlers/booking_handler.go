package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/middleware"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// BookingWorkflow is the staff side of the booking service
type BookingWorkflow interface {
	GetBooking(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error)
	Approve(ctx context.Context, id uuid.UUID, req models.ApproveBookingRequest, actor models.Actor) (*models.Booking, error)
	Reject(ctx context.Context, id uuid.UUID, req models.RejectBookingRequest, actor models.Actor) (*models.Booking, error)
	AttachPaymentReceipt(ctx context.Context, id uuid.UUID, receiptRef string, actor models.Actor) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error)
}

// BookingHandler handles admin and operator booking decisions.
// The same handler serves both route groups; ownership is checked by the workflow.
type BookingHandler struct {
	workflow BookingWorkflow
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(workflow BookingWorkflow, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{workflow: workflow, logger: logger}
}

// GetBooking returns one booking
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} map[string]interface{} "Not your listing"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.workflow.GetBooking(c.Request.Context(), id, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ApproveBooking commits the seats and sends the payment link
// @Summary Approve booking
// @Description PENDING -> APPROVED. totalPrice is required for CONTACT-priced listings.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.ApproveBookingRequest false "Final price"
// @Success 200 {object} map[string]interface{} "Approved booking"
// @Failure 400 {object} map[string]interface{} "Price required"
// @Failure 409 {object} map[string]interface{} "Not pending or not enough seats"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/approve [post]
func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ApproveBookingRequest
	// Body is optional for FIXED listings
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.workflow.Approve(c.Request.Context(), id, req, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to approve booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking approved",
		"booking": booking,
	})
}

// RejectBooking closes a pending booking with a reason
// @Summary Reject booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.RejectBookingRequest true "Rejection reason"
// @Success 200 {object} map[string]interface{} "Rejected booking"
// @Failure 400 {object} map[string]interface{} "Missing or unknown reason"
// @Failure 409 {object} map[string]interface{} "Not pending"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/reject [post]
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.workflow.Reject(c.Request.Context(), id, req, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to reject booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking rejected",
		"booking": booking,
	})
}

// AttachPaymentReceipt records the receipt for an approved booking
// @Summary Attach payment receipt
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.AttachReceiptRequest true "Receipt reference"
// @Success 200 {object} map[string]interface{} "Updated booking"
// @Failure 409 {object} map[string]interface{} "Not approved"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/payment-receipt [post]
func (h *BookingHandler) AttachPaymentReceipt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.AttachReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.workflow.AttachPaymentReceipt(c.Request.Context(), id, req.ReceiptReference, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to attach payment receipt")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment receipt attached",
		"booking": booking,
	})
}

// ConfirmPayment moves an approved booking with a receipt to PAID
// @Summary Confirm payment
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{} "Paid booking"
// @Failure 400 {object} map[string]interface{} "Payment receipt required"
// @Failure 409 {object} map[string]interface{} "Not approved"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/confirm-payment [post]
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.workflow.ConfirmPayment(c.Request.Context(), id, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to confirm payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed",
		"booking": booking,
	})
}
