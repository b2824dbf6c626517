package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// RecipientRepository resolves staff who receive booking notifications
type RecipientRepository struct {
	db *sqlx.DB
}

// NewRecipientRepository creates a new RecipientRepository
func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// ListActiveAdmins returns every active admin account with a phone on file
func (r *RecipientRepository) ListActiveAdmins(ctx context.Context) ([]models.Recipient, error) {
	var admins []models.Recipient
	err := r.db.SelectContext(ctx, &admins, `
		SELECT id, name, phone
		FROM admin_accounts
		WHERE is_active = TRUE AND phone IS NOT NULL AND phone <> ''
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// GetOperator returns the WhatsApp contact of an operator
func (r *RecipientRepository) GetOperator(ctx context.Context, operatorID uuid.UUID) (*models.Recipient, error) {
	var operator models.Recipient
	err := r.db.GetContext(ctx, &operator, `
		SELECT id, name, whatsapp_phone AS phone
		FROM operators
		WHERE id = $1`, operatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

// IsActiveOperator reports whether an operator account exists and is active
func (r *RecipientRepository) IsActiveOperator(ctx context.Context, operatorID uuid.UUID) (bool, error) {
	var active bool
	err := r.db.GetContext(ctx, &active, `SELECT is_active FROM operators WHERE id = $1`, operatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check operator: %w", err)
	}
	return active, nil
}
