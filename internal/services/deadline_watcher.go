package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// ExpiredBookingLister finds APPROVED bookings whose payment deadline passed
type ExpiredBookingLister interface {
	ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error)
}

// BookingExpirer performs the expire transition
type BookingExpirer interface {
	Expire(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

// SweepResult summarizes one watcher pass
type SweepResult struct {
	Scanned  int           `json:"scanned"`
	Expired  int           `json:"expired"`
	Skipped  int           `json:"skipped"` // already moved on by another actor or sweep
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// DeadlineWatcher expires APPROVED bookings whose payment window lapsed.
// Overlapping sweeps are safe: the expire transition only fires while the
// booking is still APPROVED, so the loser is counted as skipped.
type DeadlineWatcher struct {
	bookings  ExpiredBookingLister
	expirer   BookingExpirer
	batchSize int
	logger    *logrus.Logger
	now       func() time.Time
}

// NewDeadlineWatcher creates a watcher processing up to batchSize bookings per pass
func NewDeadlineWatcher(bookings ExpiredBookingLister, expirer BookingExpirer, batchSize int, logger *logrus.Logger) *DeadlineWatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DeadlineWatcher{
		bookings:  bookings,
		expirer:   expirer,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// RunOnce performs a single sweep
func (w *DeadlineWatcher) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var result SweepResult

	overdue, err := w.bookings.ListExpiredApproved(ctx, w.now(), w.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list overdue bookings: %w", err)
	}
	result.Scanned = len(overdue)

	for _, booking := range overdue {
		if ctx.Err() != nil {
			break
		}

		// Paid, or given a new deadline, since the list was read
		if !booking.IsPaymentOverdue(w.now()) {
			result.Skipped++
			continue
		}

		_, err := w.expirer.Expire(ctx, booking.ID)
		switch {
		case err == nil:
			result.Expired++
			w.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"reference":  booking.ReferenceNumber,
				"seats":      booking.SeatsRequested,
			}).Info("Booking expired and seats restored")
		case errors.Is(err, ErrInvalidTransition):
			result.Skipped++
		default:
			result.Failed++
			w.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to expire booking")
		}
	}

	result.Duration = time.Since(start)
	if result.Scanned > 0 {
		w.logger.WithFields(logrus.Fields{
			"scanned": result.Scanned,
			"expired": result.Expired,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("Payment deadline sweep finished")
	}
	return result, ctx.Err()
}
