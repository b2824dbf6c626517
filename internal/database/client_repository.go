package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// ClientRepository handles client database operations
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetByPhone retrieves a client by normalized phone number
func (r *ClientRepository) GetByPhone(ctx context.Context, phone string) (*models.Client, error) {
	var client models.Client
	err := r.db.GetContext(ctx, &client, `
		SELECT id, phone, first_name, last_name, email, created_at, updated_at
		FROM clients
		WHERE phone = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

// CreateIfAbsent inserts a client unless the phone is already taken.
// When another request created the phone first, the stored client is
// returned with created = false.
func (r *ClientRepository) CreateIfAbsent(ctx context.Context, client *models.Client) (*models.Client, bool, error) {
	client.ID = uuid.New()
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO clients (id, phone, first_name, last_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (phone) DO NOTHING
		RETURNING id`,
		client.ID, client.Phone, client.FirstName, client.LastName, client.Email, client.CreatedAt, client.UpdatedAt,
	).Scan(&client.ID)

	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByPhone(ctx, client.Phone)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create client: %w", err)
	}
	return client, true, nil
}

// UpdateEmail changes the contact email. Names are never written after creation.
func (r *ClientRepository) UpdateEmail(ctx context.Context, clientID uuid.UUID, email string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE clients SET email = $2, updated_at = NOW()
		WHERE id = $1`, clientID, email)
	if err != nil {
		return fmt.Errorf("failed to update client email: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
