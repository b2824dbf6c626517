package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING (QUOTE REQUEST / RESERVATION)
// ============================================================================

// RejectionReason is the fixed set of reasons an operator may give
type RejectionReason string

const (
	RejectionAircraftUnavailable RejectionReason = "AIRCRAFT_UNAVAILABLE"
	RejectionSeatsUnavailable    RejectionReason = "SEATS_UNAVAILABLE"
	RejectionRouteNotServiceable RejectionReason = "ROUTE_NOT_SERVICEABLE"
	RejectionInvalidDates        RejectionReason = "INVALID_DATES"
	RejectionPricingIssue        RejectionReason = "PRICING_ISSUE"
	RejectionCapacityExceeded    RejectionReason = "CAPACITY_EXCEEDED"
	RejectionDealUnavailable     RejectionReason = "DEAL_UNAVAILABLE"
	RejectionOther               RejectionReason = "OTHER"
)

var rejectionReasonLabels = map[RejectionReason]string{
	RejectionAircraftUnavailable: "Aircraft unavailable",
	RejectionSeatsUnavailable:    "Seats no longer available",
	RejectionRouteNotServiceable: "Route not serviceable",
	RejectionInvalidDates:        "Invalid dates",
	RejectionPricingIssue:        "Pricing issue",
	RejectionCapacityExceeded:    "Capacity exceeded",
	RejectionDealUnavailable:     "Deal no longer available",
	RejectionOther:               "Other",
}

// IsValid reports whether r is one of the fixed rejection reasons
func (r RejectionReason) IsValid() bool {
	_, ok := rejectionReasonLabels[r]
	return ok
}

// Label returns the human readable reason used in client messages
func (r RejectionReason) Label() string {
	if label, ok := rejectionReasonLabels[r]; ok {
		return label
	}
	return string(r)
}

// Booking is a client's quote request against a listing
type Booking struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	ReferenceNumber string        `json:"reference_number" db:"reference_number"`
	ListingID       uuid.UUID     `json:"listing_id" db:"listing_id"`
	ClientID        uuid.UUID     `json:"client_id" db:"client_id"`
	ContactName     string        `json:"contact_name" db:"contact_name"`
	ContactEmail    *string       `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone    string        `json:"contact_phone" db:"contact_phone"`
	SeatsRequested  int           `json:"seats_requested" db:"seats_requested"`
	TotalPrice      float64       `json:"total_price" db:"total_price"`
	Status          BookingStatus `json:"status" db:"status"`

	RejectionReason *RejectionReason `json:"rejection_reason,omitempty" db:"rejection_reason"`
	RejectionNote   *string          `json:"rejection_note,omitempty" db:"rejection_note"`

	PaymentDeadline   *time.Time `json:"payment_deadline,omitempty" db:"payment_deadline"`
	PaymentLink       *string    `json:"payment_link,omitempty" db:"payment_link"`
	PaymentReceiptRef *string    `json:"payment_receipt_ref,omitempty" db:"payment_receipt_ref"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	ExternalRequestID   *string    `json:"external_request_id,omitempty" db:"external_request_id"`
	ForwardedToExternal bool       `json:"forwarded_to_external" db:"forwarded_to_external"`
	ForwardedAt         *time.Time `json:"forwarded_at,omitempty" db:"forwarded_at"`

	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty" db:"expired_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPaymentOverdue reports whether an approved booking has passed its payment deadline
func (b *Booking) IsPaymentOverdue(now time.Time) bool {
	return b.Status == BookingStatusApproved && b.PaymentDeadline != nil && now.After(*b.PaymentDeadline)
}

// ============================================================================
// REQUEST / RESPONSE DTOs
// ============================================================================

// QuoteRequest is the public intake payload
type QuoteRequest struct {
	ListingID      string      `json:"listingId" binding:"required"`
	SeatsRequested int         `json:"seatsRequested"`
	ContactInfo    ContactInfo `json:"contactInfo"`
}

// QuoteResponse is returned after a successful intake
type QuoteResponse struct {
	BookingID           uuid.UUID `json:"bookingId"`
	ReferenceNumber     string    `json:"referenceNumber"`
	Message             string    `json:"message"`
	TotalPrice          float64   `json:"totalPrice"`
	ForwardedToExternal bool      `json:"forwardedToExternal"`
	ExternalRequestID   *string   `json:"externalRequestId,omitempty"`
}

// ApproveBookingRequest optionally sets or overrides the final price
type ApproveBookingRequest struct {
	TotalPrice *float64 `json:"totalPrice"`
}

// RejectBookingRequest carries the reason from the fixed enumeration
type RejectBookingRequest struct {
	RejectionReason RejectionReason `json:"rejectionReason"`
	RejectionNote   *string         `json:"rejectionNote"`
}

// AttachReceiptRequest records the payment receipt an operator verified
type AttachReceiptRequest struct {
	ReceiptReference string `json:"receiptReference"`
}

// ApprovalUpdate is what the store writes when a booking is approved
type ApprovalUpdate struct {
	BookingID       uuid.UUID
	ListingID       uuid.UUID
	Seats           int
	TotalPrice      float64
	PaymentDeadline time.Time
	PaymentLink     string
	ApprovedAt      time.Time
}
