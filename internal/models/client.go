package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a quote requester identified by phone number (their WhatsApp identity)
type Client struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ContactInfo is the contact block submitted with a quote request
type ContactInfo struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

// MergeClientContact applies an incoming contact block to a stored client.
//
// The name bound to a phone number never changes once set; only the email is
// updated, and only when the incoming value is non-empty and different. The
// returned bool reports whether anything changed. existing is not modified.
// A nil existing client yields a new client built from incoming.
func MergeClientContact(existing *Client, incoming ContactInfo) (Client, bool) {
	email := strings.TrimSpace(incoming.Email)

	if existing == nil {
		c := Client{
			Phone:     incoming.Phone,
			FirstName: strings.TrimSpace(incoming.FirstName),
			LastName:  strings.TrimSpace(incoming.LastName),
		}
		if email != "" {
			c.Email = &email
		}
		return c, true
	}

	merged := *existing
	if email == "" {
		return merged, false
	}
	if existing.Email != nil && strings.EqualFold(*existing.Email, email) {
		return merged, false
	}
	merged.Email = &email
	return merged, true
}
