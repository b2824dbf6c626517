package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/services"
)

// SweepScheduler exposes the payment deadline sweep to admins
type SweepScheduler interface {
	RunExpireBookingsNow(ctx context.Context) (services.SweepResult, error)
	GetJobStatus() map[string]interface{}
}

// CronHandler handles manual sweep triggers and scheduler status
type CronHandler struct {
	scheduler SweepScheduler
	logger    *logrus.Logger
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(scheduler SweepScheduler, logger *logrus.Logger) *CronHandler {
	return &CronHandler{scheduler: scheduler, logger: logger}
}

// ExpireBookings runs the payment deadline sweep now
// @Summary Run payment deadline sweep
// @Tags Admin Cron
// @Produce json
// @Success 200 {object} map[string]interface{} "Sweep result"
// @Security BearerAuth
// @Router /api/v1/admin/cron/expire-bookings [post]
func (h *CronHandler) ExpireBookings(c *gin.Context) {
	result, err := h.scheduler.RunExpireBookingsNow(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual payment deadline sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Payment deadline sweep failed",
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment deadline sweep completed",
		"result":  result,
	})
}

// GetStatus returns the scheduler status
// @Summary Cron status
// @Tags Admin Cron
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/admin/cron/status [get]
func (h *CronHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}
