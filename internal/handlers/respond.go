package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/services"
)

// statusForKind maps booking error kinds onto HTTP status codes
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotBookable,
		services.KindInsufficientInventory,
		services.KindInvalidTransition,
		services.KindDuplicateSubmission:
		return http.StatusConflict
	case services.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a classified error as {"error", "code"}. Unclassified
// errors are logged and answered with a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	kind := services.KindOf(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error(fallback)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}

	c.JSON(status, gin.H{
		"error": bookingErrorMessage(err),
		"code":  kind,
	})
}

func bookingErrorMessage(err error) string {
	var be *services.BookingError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}

// parseIDParam reads a uuid path parameter, answering 400 when it is malformed
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return uuid.Nil, false
	}
	return id, true
}
