package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// LISTING (EMPTY LEG) TYPES & STATUSES
// ============================================================================

// ListingStatus represents the lifecycle status of an empty-leg listing
type ListingStatus string

const (
	ListingStatusPublished   ListingStatus = "PUBLISHED"
	ListingStatusOpen        ListingStatus = "OPEN"
	ListingStatusClosed      ListingStatus = "CLOSED"      // Sold out or unpublished
	ListingStatusUnavailable ListingStatus = "UNAVAILABLE" // Withdrawn by operator
)

// IsBookable reports whether quote requests and approvals may consume seats
func (s ListingStatus) IsBookable() bool {
	return s == ListingStatusPublished || s == ListingStatusOpen
}

// PriceMode tells intake whether the listing has a flat price
type PriceMode string

const (
	PriceModeFixed   PriceMode = "FIXED"
	PriceModeContact PriceMode = "CONTACT"
)

// ListingSource identifies who created the listing
type ListingSource string

const (
	ListingSourceAdmin       ListingSource = "ADMIN"
	ListingSourceOperator    ListingSource = "OPERATOR"
	ListingSourceMarketplace ListingSource = "MARKETPLACE"
)

// Airport is the route reference used by listings and by marketplace forwarding
type Airport struct {
	Code      string  `json:"code" db:"code"`
	Name      string  `json:"name" db:"name"`
	City      string  `json:"city" db:"city"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Listing is one sellable empty-leg seat allocation
type Listing struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	DepartureAirport Airport       `json:"departure_airport" db:"dep"`
	ArrivalAirport   Airport       `json:"arrival_airport" db:"arr"`
	DepartureAt      time.Time     `json:"departure_at" db:"departure_at"`
	AircraftType     *string       `json:"aircraft_type,omitempty" db:"aircraft_type"`
	TotalSeats       int           `json:"total_seats" db:"total_seats"`
	AvailableSeats   int           `json:"available_seats" db:"available_seats"`
	PriceMode        PriceMode     `json:"price_mode" db:"price_mode"`
	PriceUSD         float64       `json:"price_usd" db:"price_usd"`
	Status           ListingStatus `json:"status" db:"status"`
	Source           ListingSource `json:"source" db:"source"`
	OperatorID       *uuid.UUID    `json:"operator_id,omitempty" db:"operator_id"`
	ExternalID       *string       `json:"external_id,omitempty" db:"external_id"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// IsMarketplaceSourced reports whether the listing was synced from the third-party marketplace
func (l *Listing) IsMarketplaceSourced() bool {
	return l.Source == ListingSourceMarketplace
}

// HasDeparted reports whether the flight has already left at the given time
func (l *Listing) HasDeparted(now time.Time) bool {
	return !l.DepartureAt.After(now)
}

// QuotePrice returns the booking price for a quote request.
// FIXED listings are sold as one flight cost regardless of seat count.
func (l *Listing) QuotePrice() float64 {
	if l.PriceMode == PriceModeFixed {
		return l.PriceUSD
	}
	return 0
}
