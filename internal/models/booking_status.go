package models

import "fmt"

// BookingStatus is the lifecycle state of a quote request / reservation
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Awaiting operator decision
	BookingStatusApproved  BookingStatus = "APPROVED"  // Seats committed, payment window open
	BookingStatusRejected  BookingStatus = "REJECTED"  // Terminal
	BookingStatusPaid      BookingStatus = "PAID"      // Terminal success
	BookingStatusExpired   BookingStatus = "EXPIRED"   // Terminal, payment window lapsed
	BookingStatusCompleted BookingStatus = "COMPLETED" // Terminal, post-flight
)

// bookingTransitions is the full booking state machine.
// COMPLETED is written by post-flight processing and has no edge in here.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusApproved, BookingStatusRejected},
	BookingStatusApproved:  {BookingStatusPaid, BookingStatusExpired},
	BookingStatusRejected:  {},
	BookingStatusPaid:      {},
	BookingStatusExpired:   {},
	BookingStatusCompleted: {},
}

// IsValid returns true if the status is a recognized booking status
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo returns true if the state machine allows s -> target
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// HoldsSeats reports whether a booking in this status has seats reserved on its listing
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingStatusApproved || s == BookingStatusPaid || s == BookingStatusCompleted
}

// ValidateTransition returns an error describing why s -> target is not allowed
func (s BookingStatus) ValidateTransition(target BookingStatus) error {
	if !s.IsValid() {
		return fmt.Errorf("unknown booking status %q", s)
	}
	if !s.CanTransitionTo(target) {
		return fmt.Errorf("cannot move booking from %s to %s", s, target)
	}
	return nil
}

// BookingEventType names the lifecycle transitions observed by post-commit hooks
type BookingEventType string

const (
	BookingEventRequested       BookingEventType = "booking.requested"
	BookingEventApproved        BookingEventType = "booking.approved"
	BookingEventRejected        BookingEventType = "booking.rejected"
	BookingEventReceiptAttached BookingEventType = "booking.receipt_attached"
	BookingEventPaid            BookingEventType = "booking.paid"
	BookingEventExpired         BookingEventType = "booking.expired"
)
