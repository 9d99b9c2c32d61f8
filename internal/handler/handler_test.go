package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/payment"
)

// --- Mock implementations ---

type mockOrderService struct {
	order     *order.Order
	err       error
	updated   []int64
	cancelled struct {
		userID, orderID int64
		reason          string
	}
	statusSet order.Status
}

func (m *mockOrderService) OrderForUser(_ context.Context, _, _ int64) (*order.Order, error) {
	return m.order, m.err
}

func (m *mockOrderService) CancelOrder(_ context.Context, userID, orderID int64, reason string) error {
	m.cancelled.userID = userID
	m.cancelled.orderID = orderID
	m.cancelled.reason = reason
	return m.err
}

func (m *mockOrderService) UpdateStatus(_ context.Context, _ int64, to order.Status) error {
	m.statusSet = to
	return m.err
}

func (m *mockOrderService) BulkUpdateStatus(_ context.Context, ids []int64, to order.Status) ([]int64, error) {
	m.statusSet = to
	m.updated = ids
	return ids, m.err
}

type mockReconciler struct {
	correlationID string
	succeeded     bool
	rawCode       string
	err           error
	calls         int
}

func (m *mockReconciler) HandleOutcome(_ context.Context, correlationID string, succeeded bool, rawCode string) error {
	m.calls++
	m.correlationID = correlationID
	m.succeeded = succeeded
	m.rawCode = rawCode
	return m.err
}

func serve(t *testing.T, svc *mockOrderService, rec *mockReconciler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	New(svc, rec).Routes().ServeHTTP(w, req)
	return w
}

// --- Webhook tests ---

func TestPaymentWebhook_Success(t *testing.T) {
	rec := &mockReconciler{}
	body := `{"orderCode":"ORD-123","resultCode":"00","extra":42}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))

	w := serve(t, &mockOrderService{}, rec, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ORD-123", rec.correlationID)
	assert.True(t, rec.succeeded)
	assert.Equal(t, "00", rec.rawCode)
}

func TestPaymentWebhook_FailureCodeStillAcked(t *testing.T) {
	rec := &mockReconciler{}
	body := `{"orderCode":"ORD-123","resultCode":"51"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))

	w := serve(t, &mockOrderService{}, rec, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, rec.succeeded)
	assert.Equal(t, "51", rec.rawCode)
}

func TestPaymentWebhook_UnknownCorrelation(t *testing.T) {
	rec := &mockReconciler{err: payment.ErrNotFound}
	body := `{"orderCode":"ORD-404","resultCode":"00"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))

	w := serve(t, &mockOrderService{}, rec, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentWebhook_MalformedBody(t *testing.T) {
	rec := &mockReconciler{}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(`{"orderCode":`))

	w := serve(t, &mockOrderService{}, rec, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, rec.calls)
}

func TestPaymentWebhook_MissingFields(t *testing.T) {
	rec := &mockReconciler{}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(`{"orderCode":"ORD-1"}`))

	w := serve(t, &mockOrderService{}, rec, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Order endpoint tests ---

func TestGetOrder(t *testing.T) {
	svc := &mockOrderService{order: &order.Order{
		ID:          5,
		Number:      123,
		Status:      order.StatusPending,
		FinalAmount: decimal.RequireFromString("275.00"),
	}}
	req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)
	req.Header.Set(userIDHeader, "42")

	w := serve(t, svc, &mockReconciler{}, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"orderNumber":123`)
	assert.Contains(t, w.Body.String(), `"finalAmount":"275"`)
}

func TestGetOrder_MissingUserHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)

	w := serve(t, &mockOrderService{}, &mockReconciler{}, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetOrder_NotOwned(t *testing.T) {
	svc := &mockOrderService{err: order.ErrAccessDenied}
	req := httptest.NewRequest(http.MethodGet, "/orders/5", nil)
	req.Header.Set(userIDHeader, "42")

	w := serve(t, svc, &mockReconciler{}, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelOrder(t *testing.T) {
	svc := &mockOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/orders/5/cancel",
		strings.NewReader(`{"reason":"changed my mind"}`))
	req.Header.Set(userIDHeader, "42")

	w := serve(t, svc, &mockReconciler{}, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(42), svc.cancelled.userID)
	assert.Equal(t, int64(5), svc.cancelled.orderID)
	assert.Equal(t, "changed my mind", svc.cancelled.reason)
}

func TestCancelOrder_Conflict(t *testing.T) {
	svc := &mockOrderService{err: order.ErrNotCancellable}
	req := httptest.NewRequest(http.MethodPost, "/orders/5/cancel", strings.NewReader(`{}`))
	req.Header.Set(userIDHeader, "42")

	w := serve(t, svc, &mockReconciler{}, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	svc := &mockOrderService{}
	req := httptest.NewRequest(http.MethodPatch, "/orders/5/status",
		strings.NewReader(`{"status":"SHIPPED"}`))

	w := serve(t, svc, &mockReconciler{}, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, order.StatusShipped, svc.statusSet)
}

func TestBulkUpdateStatus(t *testing.T) {
	svc := &mockOrderService{}
	req := httptest.NewRequest(http.MethodPatch, "/orders/status",
		strings.NewReader(`{"orderIds":[1,2,3],"status":"CONFIRMED"}`))

	w := serve(t, svc, &mockReconciler{}, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{1, 2, 3}, svc.updated)
	assert.Contains(t, w.Body.String(), `"updated":[1,2,3]`)
}

func TestBulkUpdateStatus_MissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/orders/status",
		strings.NewReader(`{"orderIds":[]}`))

	w := serve(t, &mockOrderService{}, &mockReconciler{}, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
