package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActivityAction tags an audit record
type ActivityAction string

const (
	ActivityQuoteRequested   ActivityAction = "QUOTE_REQUESTED"
	ActivityBookingApproved  ActivityAction = "BOOKING_APPROVED"
	ActivityBookingRejected  ActivityAction = "BOOKING_REJECTED"
	ActivityReceiptAttached  ActivityAction = "PAYMENT_RECEIPT_ATTACHED"
	ActivityPaymentConfirmed ActivityAction = "PAYMENT_CONFIRMED"
	ActivityBookingExpired   ActivityAction = "BOOKING_EXPIRED"
	ActivityForwardSucceeded ActivityAction = "MARKETPLACE_FORWARDED"
	ActivityForwardFailed    ActivityAction = "MARKETPLACE_FORWARD_FAILED"
)

// ActivityMetadata is the structured blob stored with an audit record
type ActivityMetadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m ActivityMetadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval
func (m *ActivityMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = ActivityMetadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

// ActivityLog is an append-only audit record
type ActivityLog struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole   string           `json:"actor_role" db:"actor_role"`
	Action      ActivityAction   `json:"action" db:"action"`
	TargetType  string           `json:"target_type" db:"target_type"`
	TargetID    uuid.UUID        `json:"target_id" db:"target_id"`
	Description string           `json:"description" db:"description"`
	Metadata    ActivityMetadata `json:"metadata" db:"metadata"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// Actor is whoever triggered a transition
type Actor struct {
	ID         *uuid.UUID
	Role       string // admin, operator, client, system
	OperatorID *uuid.UUID
	IPAddress  string
	UserAgent  string
}

const (
	ActorRoleAdmin    = "admin"
	ActorRoleOperator = "operator"
	ActorRoleClient   = "client"
	ActorRoleSystem   = "system"
)

// SystemActor is used for sweep-triggered transitions
func SystemActor() Actor {
	return Actor{Role: ActorRoleSystem}
}

// Recipient is a notification target resolved by the fan-out
type Recipient struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Phone string    `db:"phone"`
}
