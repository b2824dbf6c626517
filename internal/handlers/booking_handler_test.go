package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skyleg/emptyleg-backend/internal/middleware"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockWorkflow struct {
	mock.Mock
}

func (m *mockWorkflow) GetBooking(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, actor)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func (m *mockWorkflow) Approve(ctx context.Context, id uuid.UUID, req models.ApproveBookingRequest, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, req, actor)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func (m *mockWorkflow) Reject(ctx context.Context, id uuid.UUID, req models.RejectBookingRequest, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, req, actor)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func (m *mockWorkflow) AttachPaymentReceipt(ctx context.Context, id uuid.UUID, receiptRef string, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, receiptRef, actor)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func (m *mockWorkflow) ConfirmPayment(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, actor)
	booking, _ := args.Get(0).(*models.Booking)
	return booking, args.Error(1)
}

func bookingRouter(workflow BookingWorkflow, staff middleware.StaffContext) *gin.Engine {
	handler := NewBookingHandler(workflow, testLogger())
	router := gin.New()
	group := router.Group("/bookings", withStaff(staff))
	group.GET("/:id", handler.GetBooking)
	group.POST("/:id/approve", handler.ApproveBooking)
	group.POST("/:id/reject", handler.RejectBooking)
	group.POST("/:id/payment-receipt", handler.AttachPaymentReceipt)
	group.POST("/:id/confirm-payment", handler.ConfirmPayment)
	return router
}

func isAdminActor(actor models.Actor) bool {
	return actor.Role == models.ActorRoleAdmin && actor.ID != nil
}

func TestBookingHandler_InvalidID(t *testing.T) {
	workflow := new(mockWorkflow)
	router := bookingRouter(workflow, adminStaff())

	for _, path := range []string{"/bookings/not-a-uuid", "/bookings/123/approve", "/bookings/x/confirm-payment"} {
		method := http.MethodPost
		if path == "/bookings/not-a-uuid" {
			method = http.MethodGet
		}
		w := doRequest(router, method, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "Invalid booking ID", decodeBody(t, w)["error"])
	}
	workflow.AssertExpectations(t)
}

func TestBookingHandler_GetBooking(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	workflow.On("GetBooking", mock.Anything, id, mock.MatchedBy(isAdminActor)).
		Return(&models.Booking{ID: id, ReferenceNumber: "EL-2026-QWERTY", Status: models.BookingStatusPending}, nil).Once()

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodGet, "/bookings/"+id.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "EL-2026-QWERTY", body["reference_number"])
	assert.Equal(t, "PENDING", body["status"])
	workflow.AssertExpectations(t)
}

func TestBookingHandler_GetBookingForbidden(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	operatorID := uuid.New()
	workflow.On("GetBooking", mock.Anything, id, mock.MatchedBy(func(actor models.Actor) bool {
		return actor.Role == models.ActorRoleOperator && actor.OperatorID != nil && *actor.OperatorID == operatorID
	})).Return(nil, &services.BookingError{Kind: services.KindForbidden, Message: "booking belongs to another operator"}).Once()

	staff := middleware.StaffContext{StaffID: uuid.New(), Roles: []string{"operator"}, OperatorID: &operatorID}
	w := doRequest(bookingRouter(workflow, staff), http.MethodGet, "/bookings/"+id.String(), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeBody(t, w)["code"])
	workflow.AssertExpectations(t)
}

func TestBookingHandler_ApproveWithoutBody(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	workflow.On("Approve", mock.Anything, id, models.ApproveBookingRequest{}, mock.MatchedBy(isAdminActor)).
		Return(&models.Booking{ID: id, Status: models.BookingStatusApproved, TotalPrice: 5000}, nil).Once()

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+id.String()+"/approve", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Booking approved", body["message"])
	assert.Equal(t, "APPROVED", body["booking"].(map[string]interface{})["status"])
	workflow.AssertExpectations(t)
}

func TestBookingHandler_ApproveWithPrice(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	workflow.On("Approve", mock.Anything, id, mock.MatchedBy(func(req models.ApproveBookingRequest) bool {
		return req.TotalPrice != nil && *req.TotalPrice == 4200
	}), mock.Anything).Return(&models.Booking{ID: id, Status: models.BookingStatusApproved, TotalPrice: 4200}, nil).Once()

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+id.String()+"/approve",
		map[string]interface{}{"totalPrice": 4200})

	assert.Equal(t, http.StatusOK, w.Code)
	workflow.AssertExpectations(t)
}

func TestBookingHandler_ApproveMalformedBody(t *testing.T) {
	workflow := new(mockWorkflow)

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+uuid.New().String()+"/approve",
		`{"totalPrice": "lots"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	workflow.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingHandler_ApproveConflicts(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"already decided", &services.BookingError{Kind: services.KindInvalidTransition, Message: "booking is APPROVED, expected PENDING"}, http.StatusConflict},
		{"sold out", &services.BookingError{Kind: services.KindInsufficientInventory, Message: "seats no longer available"}, http.StatusConflict},
		{"price required", &services.BookingError{Kind: services.KindValidation, Message: "totalPrice is required for listings priced on request"}, http.StatusBadRequest},
		{"missing", &services.BookingError{Kind: services.KindNotFound, Message: "booking not found"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := new(mockWorkflow)
			workflow.On("Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+uuid.New().String()+"/approve", nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.(*services.BookingError).Message, decodeBody(t, w)["error"])
		})
	}
}

func TestBookingHandler_Reject(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	workflow.On("Reject", mock.Anything, id, mock.MatchedBy(func(req models.RejectBookingRequest) bool {
		return req.RejectionReason == models.RejectionReason("AIRCRAFT_UNAVAILABLE") &&
			req.RejectionNote != nil && *req.RejectionNote == "Maintenance"
	}), mock.Anything).Return(&models.Booking{ID: id, Status: models.BookingStatusRejected}, nil).Once()

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+id.String()+"/reject",
		map[string]interface{}{"rejectionReason": "AIRCRAFT_UNAVAILABLE", "rejectionNote": "Maintenance"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Booking rejected", decodeBody(t, w)["message"])
	workflow.AssertExpectations(t)
}

func TestBookingHandler_RejectRequiresBody(t *testing.T) {
	workflow := new(mockWorkflow)

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+uuid.New().String()+"/reject", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	workflow.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingHandler_AttachReceiptAndConfirm(t *testing.T) {
	workflow := new(mockWorkflow)
	id := uuid.New()
	receipt := "RCPT-7781"
	workflow.On("AttachPaymentReceipt", mock.Anything, id, receipt, mock.Anything).
		Return(&models.Booking{ID: id, Status: models.BookingStatusApproved, PaymentReceiptRef: &receipt}, nil).Once()
	workflow.On("ConfirmPayment", mock.Anything, id, mock.MatchedBy(isAdminActor)).
		Return(&models.Booking{ID: id, Status: models.BookingStatusPaid, PaymentReceiptRef: &receipt}, nil).Once()

	router := bookingRouter(workflow, adminStaff())

	w := doRequest(router, http.MethodPost, "/bookings/"+id.String()+"/payment-receipt", map[string]interface{}{"receiptReference": receipt})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment receipt attached", decodeBody(t, w)["message"])

	w = doRequest(router, http.MethodPost, "/bookings/"+id.String()+"/confirm-payment", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Payment confirmed", body["message"])
	assert.Equal(t, "PAID", body["booking"].(map[string]interface{})["status"])

	workflow.AssertExpectations(t)
}

func TestBookingHandler_ConfirmWithoutReceipt(t *testing.T) {
	workflow := new(mockWorkflow)
	workflow.On("ConfirmPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &services.BookingError{Kind: services.KindValidation, Message: "payment receipt required"}).Once()

	w := doRequest(bookingRouter(workflow, adminStaff()), http.MethodPost, "/bookings/"+uuid.New().String()+"/confirm-payment", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payment receipt required", decodeBody(t, w)["error"])
}
