package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// ActivityLogRepository appends audit records. Nothing in the workflow reads them back.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create inserts one activity log entry
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, actor_id, actor_role, action, target_type, target_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		entry.ID,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Description,
		entry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}
