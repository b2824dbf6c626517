package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SubmissionGuard refuses a repeat quote request for the same phone and
// listing inside a short window. It fails open: if Redis is unreachable the
// request is let through.
type SubmissionGuard struct {
	client *redis.Client
	window time.Duration
	logger *logrus.Logger
}

// NewSubmissionGuard creates a guard backed by client
func NewSubmissionGuard(client *redis.Client, window time.Duration, logger *logrus.Logger) *SubmissionGuard {
	return &SubmissionGuard{client: client, window: window, logger: logger}
}

// Acquire reports whether this submission is the first inside the window
func (g *SubmissionGuard) Acquire(ctx context.Context, phone string, listingID uuid.UUID) bool {
	ok, err := g.client.SetNX(ctx, submissionKey(phone, listingID), time.Now().Unix(), g.window).Result()
	if err != nil {
		g.logger.WithError(err).Warn("Submission guard unavailable, allowing request")
		return true
	}
	return ok
}

// Release clears the key so a failed submission can be retried at once
func (g *SubmissionGuard) Release(ctx context.Context, phone string, listingID uuid.UUID) {
	if err := g.client.Del(ctx, submissionKey(phone, listingID)).Err(); err != nil {
		g.logger.WithError(err).Warn("Failed to release submission guard")
	}
}

func submissionKey(phone string, listingID uuid.UUID) string {
	return fmt.Sprintf("quote:dedupe:%s:%s", phone, listingID)
}
