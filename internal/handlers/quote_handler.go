package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/middleware"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// QuoteSubmitter is the intake side of the booking service
type QuoteSubmitter interface {
	SubmitQuoteRequest(ctx context.Context, req models.QuoteRequest, actor models.Actor) (*models.QuoteResponse, error)
}

// QuoteHandler handles public quote requests
type QuoteHandler struct {
	quotes QuoteSubmitter
	logger *logrus.Logger
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteSubmitter, logger *logrus.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// SubmitQuote records a quote request against an empty-leg listing
// @Summary Request a quote
// @Description Public intake. Creates a PENDING booking; seats are only committed on approval.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body models.QuoteRequest true "Quote request"
// @Success 201 {object} models.QuoteResponse
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Listing not found"
// @Failure 409 {object} map[string]interface{} "Listing not bookable or not enough seats"
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.quotes.SubmitQuoteRequest(c.Request.Context(), req, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to submit quote request")
		return
	}

	c.JSON(http.StatusCreated, resp)
}
