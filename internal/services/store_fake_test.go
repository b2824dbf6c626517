package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/config"
	"github.com/skyleg/emptyleg-backend/internal/database"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// fakeDB is an in-memory store honouring the same compare-and-swap contract as
// the Postgres repositories: every transition and ledger change checks the
// expected state under one lock and reports a sentinel when it lost.
type fakeDB struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*models.Listing
	bookings map[uuid.UUID]*models.Booking
	clients  map[string]*models.Client
	logs     []*models.ActivityLog
	writes   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		listings: map[uuid.UUID]*models.Listing{},
		bookings: map[uuid.UUID]*models.Booking{},
		clients:  map[string]*models.Client{},
	}
}

func (db *fakeDB) addListing(l *models.Listing) *models.Listing {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	db.listings[l.ID] = &cp
	return l
}

func (db *fakeDB) addBooking(b *models.Booking) *models.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.ReferenceNumber == "" {
		b.ReferenceNumber = "EL-2026-" + b.ID.String()[:6]
	}
	cp := *b
	db.bookings[b.ID] = &cp
	return b
}

func (db *fakeDB) listing(id uuid.UUID) models.Listing {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.listings[id]
}

func (db *fakeDB) booking(id uuid.UUID) models.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.bookings[id]
}

func (db *fakeDB) writeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

func (db *fakeDB) bookingCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.bookings)
}

// reserveLocked mirrors ListingRepository.Reserve
func (db *fakeDB) reserveLocked(listingID uuid.UUID, seats int) error {
	l, ok := db.listings[listingID]
	if !ok {
		return database.ErrNotFound
	}
	if l.HasDeparted(time.Now()) {
		return database.ErrListingNotBookable
	}
	if l.AvailableSeats < seats {
		return database.ErrInsufficientSeats
	}
	if !l.Status.IsBookable() {
		return database.ErrListingNotBookable
	}
	l.AvailableSeats -= seats
	if l.AvailableSeats == 0 {
		l.Status = models.ListingStatusClosed
	}
	return nil
}

// restoreLocked mirrors ListingRepository.Restore
func (db *fakeDB) restoreLocked(listingID uuid.UUID, seats int) error {
	l, ok := db.listings[listingID]
	if !ok {
		return database.ErrNotFound
	}
	wasSoldOut := l.AvailableSeats == 0
	l.AvailableSeats += seats
	if l.AvailableSeats > l.TotalSeats {
		l.AvailableSeats = l.TotalSeats
	}
	if l.Status == models.ListingStatusClosed && wasSoldOut && !l.HasDeparted(time.Now()) {
		l.Status = models.ListingStatusOpen
	}
	return nil
}

// ---------------------------------------------------------------------------

type fakeListings struct{ db *fakeDB }

func (f fakeListings) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	l, ok := f.db.listings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// ---------------------------------------------------------------------------

type fakeClients struct{ db *fakeDB }

func (f fakeClients) GetByPhone(ctx context.Context, phone string) (*models.Client, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.clients[phone]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeClients) CreateIfAbsent(ctx context.Context, client *models.Client) (*models.Client, bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if existing, ok := f.db.clients[client.Phone]; ok {
		cp := *existing
		return &cp, false, nil
	}
	f.db.writes++
	cp := *client
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.db.clients[client.Phone] = &cp
	out := cp
	return &out, true, nil
}

func (f fakeClients) UpdateEmail(ctx context.Context, clientID uuid.UUID, email string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.clients {
		if c.ID == clientID {
			f.db.writes++
			e := email
			c.Email = &e
			return nil
		}
	}
	return database.ErrNotFound
}

// ---------------------------------------------------------------------------

type fakeBookings struct{ db *fakeDB }

func (f fakeBookings) Create(ctx context.Context, booking *models.Booking, nextReference func(attempt int) string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.writes++
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusPending
	booking.ReferenceNumber = nextReference(0)
	booking.CreatedAt = time.Now()
	cp := *booking
	f.db.bookings[booking.ID] = &cp
	return nil
}

func (f fakeBookings) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f fakeBookings) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, b := range f.db.bookings {
		if b.ReferenceNumber == reference {
			cp := *b
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f fakeBookings) ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*models.Booking
	for _, b := range f.db.bookings {
		if b.Status == models.BookingStatusApproved && b.PaymentDeadline != nil && b.PaymentDeadline.Before(now) {
			cp := *b
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// casLocked is the status compare-and-swap every transition goes through
func (f fakeBookings) casLocked(id uuid.UUID, from models.BookingStatus, guard func(*models.Booking) bool) (*models.Booking, error) {
	b, ok := f.db.bookings[id]
	if !ok || b.Status != from || (guard != nil && !guard(b)) {
		return nil, database.ErrStatusConflict
	}
	return b, nil
}

func (f fakeBookings) Approve(ctx context.Context, upd models.ApprovalUpdate) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, err := f.casLocked(upd.BookingID, models.BookingStatusPending, nil)
	if err != nil {
		return nil, err
	}
	if err := f.db.reserveLocked(upd.ListingID, upd.Seats); err != nil {
		return nil, err
	}
	f.db.writes++
	b.Status = models.BookingStatusApproved
	b.TotalPrice = upd.TotalPrice
	deadline, approvedAt, link := upd.PaymentDeadline, upd.ApprovedAt, upd.PaymentLink
	b.PaymentDeadline = &deadline
	b.ApprovedAt = &approvedAt
	b.PaymentLink = &link
	cp := *b
	return &cp, nil
}

func (f fakeBookings) Reject(ctx context.Context, id uuid.UUID, reason models.RejectionReason, note *string, at time.Time) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, err := f.casLocked(id, models.BookingStatusPending, nil)
	if err != nil {
		return nil, err
	}
	f.db.writes++
	b.Status = models.BookingStatusRejected
	b.RejectionReason = &reason
	b.RejectionNote = note
	b.RejectedAt = &at
	cp := *b
	return &cp, nil
}

func (f fakeBookings) AttachReceipt(ctx context.Context, id uuid.UUID, receiptRef string) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, err := f.casLocked(id, models.BookingStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	f.db.writes++
	b.PaymentReceiptRef = &receiptRef
	cp := *b
	return &cp, nil
}

func (f fakeBookings) ConfirmPayment(ctx context.Context, id uuid.UUID, at time.Time) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, err := f.casLocked(id, models.BookingStatusApproved, func(b *models.Booking) bool { return b.PaymentReceiptRef != nil })
	if err != nil {
		return nil, err
	}
	f.db.writes++
	b.Status = models.BookingStatusPaid
	b.PaidAt = &at
	cp := *b
	return &cp, nil
}

func (f fakeBookings) Expire(ctx context.Context, id uuid.UUID, now time.Time) (*models.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, err := f.casLocked(id, models.BookingStatusApproved, func(b *models.Booking) bool {
		return b.PaymentDeadline != nil && b.PaymentDeadline.Before(now)
	})
	if err != nil {
		return nil, err
	}
	if err := f.db.restoreLocked(b.ListingID, b.SeatsRequested); err != nil {
		return nil, err
	}
	f.db.writes++
	b.Status = models.BookingStatusExpired
	b.ExpiredAt = &now
	cp := *b
	return &cp, nil
}

func (f fakeBookings) MarkForwarded(ctx context.Context, id uuid.UUID, externalRequestID string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.ForwardedToExternal {
		return database.ErrStatusConflict
	}
	f.db.writes++
	b.ExternalRequestID = &externalRequestID
	b.ForwardedToExternal = true
	b.ForwardedAt = &at
	return nil
}

// ---------------------------------------------------------------------------

type fakeActivityLogs struct {
	db  *fakeDB
	err error
}

func (f fakeActivityLogs) Create(ctx context.Context, entry *models.ActivityLog) error {
	if f.err != nil {
		return f.err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cp := *entry
	f.db.logs = append(f.db.logs, &cp)
	return nil
}

func (db *fakeDB) activity() []*models.ActivityLog {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*models.ActivityLog(nil), db.logs...)
}

// ---------------------------------------------------------------------------

type fakeRecipients struct {
	admins    []models.Recipient
	operators map[uuid.UUID]models.Recipient
	err       error
}

func (f fakeRecipients) ListActiveAdmins(ctx context.Context) ([]models.Recipient, error) {
	return f.admins, f.err
}

func (f fakeRecipients) GetOperator(ctx context.Context, operatorID uuid.UUID) (*models.Recipient, error) {
	if f.err != nil {
		return nil, f.err
	}
	op, ok := f.operators[operatorID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &op, nil
}

// ---------------------------------------------------------------------------

// recordingHook captures events and can be told to fail or panic
type recordingHook struct {
	name   string
	mu     sync.Mutex
	events []*BookingEvent
	err    error
	panic  bool
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) Handle(ctx context.Context, event *BookingEvent) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	if h.panic {
		panic("hook exploded")
	}
	return h.err
}

func (h *recordingHook) types() []models.BookingEventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.BookingEventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

// ---------------------------------------------------------------------------

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testPaymentLinks() *PaymentLinkService {
	return NewPaymentLinkService(config.PaymentConfig{
		LinkBaseURL:   "https://pay.example.com/checkout",
		MerchantKey:   "MK-1",
		MerchantToken: "secret-token",
		Currency:      "USD",
	})
}

func fixedPriceListing(seats int, price float64) *models.Listing {
	return &models.Listing{
		DepartureAirport: models.Airport{Code: "KTEB", Name: "Teterboro", Latitude: 40.85, Longitude: -74.06},
		ArrivalAirport:   models.Airport{Code: "KPBI", Name: "Palm Beach Intl", Latitude: 26.68, Longitude: -80.09},
		DepartureAt:      time.Now().Add(72 * time.Hour),
		TotalSeats:       seats,
		AvailableSeats:   seats,
		PriceMode:        models.PriceModeFixed,
		PriceUSD:         price,
		Status:           models.ListingStatusPublished,
		Source:           models.ListingSourceAdmin,
	}
}

func contactListing(seats int) *models.Listing {
	l := fixedPriceListing(seats, 0)
	l.PriceMode = models.PriceModeContact
	return l
}

func pendingBooking(listing *models.Listing, seats int, price float64) *models.Booking {
	email := "jane@example.com"
	return &models.Booking{
		ListingID:      listing.ID,
		ClientID:       uuid.New(),
		ContactName:    "Jane Doe",
		ContactEmail:   &email,
		ContactPhone:   "+14155550123",
		SeatsRequested: seats,
		TotalPrice:     price,
		Status:         models.BookingStatusPending,
	}
}

func adminActor() models.Actor {
	id := uuid.New()
	return models.Actor{ID: &id, Role: models.ActorRoleAdmin}
}

func operatorActor(operatorID uuid.UUID) models.Actor {
	id := uuid.New()
	return models.Actor{ID: &id, Role: models.ActorRoleOperator, OperatorID: &operatorID}
}
