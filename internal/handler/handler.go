// Package handler exposes the thin operational HTTP surface: the payment
// gateway webhook and operator order endpoints. The storefront API proper
// is out of scope here.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
)

// OrderService is the slice of the checkout orchestrator the handlers use.
type OrderService interface {
	OrderForUser(ctx context.Context, userID, orderID int64) (*order.Order, error)
	CancelOrder(ctx context.Context, userID, orderID int64, reason string) error
	UpdateStatus(ctx context.Context, orderID int64, to order.Status) error
	BulkUpdateStatus(ctx context.Context, ids []int64, to order.Status) ([]int64, error)
}

// OutcomeReconciler reconciles a gateway payment outcome.
type OutcomeReconciler interface {
	HandleOutcome(ctx context.Context, correlationID string, succeeded bool, rawCode string) error
}

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	orders     OrderService
	reconciler OutcomeReconciler
}

// New creates a Handler.
func New(orders OrderService, reconciler OutcomeReconciler) *Handler {
	return &Handler{orders: orders, reconciler: reconciler}
}

// Routes returns the chi router for the operational surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhooks/payment", h.paymentWebhook)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Patch("/orders/status", h.bulkUpdateStatus)
	return r
}

func writeJSON(w http.ResponseWriter, status int, build func(e *jx.Encoder)) {
	var e jx.Encoder
	build(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}
