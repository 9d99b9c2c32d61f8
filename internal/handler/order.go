package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
)

// userIDHeader carries the authenticated caller's id. Authentication itself
// is terminated upstream; this surface only trusts its result.
const userIDHeader = "X-User-ID"

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.OrderForUser(r.Context(), userID, orderID)
	if err != nil {
		h.mapOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	reason, err := decodeStringField(r, "reason")
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.orders.CancelOrder(r.Context(), userID, orderID, reason); err != nil {
		h.mapOrderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	st, err := decodeStringField(r, "status")
	if err != nil || st == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, order.Status(st)); err != nil {
		h.mapOrderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ids, st, err := decodeBulkStatus(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	updated, err := h.orders.BulkUpdateStatus(r.Context(), ids, order.Status(st))
	if err != nil {
		h.mapOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("updated", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, id := range updated {
						e.Int64(id)
					}
				})
			})
		})
	})
}

// mapOrderError converts domain errors to HTTP error responses.
func (h *Handler) mapOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "order does not belong to caller")
	case errors.Is(err, order.ErrNotCancellable), errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(userIDHeader), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid "+userIDHeader)
		return 0, false
	}
	return id, true
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Int64(o.Number) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Str(o.TotalAmount.String()) })
		e.Field("shippingFee", func(e *jx.Encoder) { e.Str(o.ShippingFee.String()) })
		e.Field("discountAmount", func(e *jx.Encoder) { e.Str(o.DiscountAmount.String()) })
		e.Field("finalAmount", func(e *jx.Encoder) { e.Str(o.FinalAmount.String()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("variantId", func(e *jx.Encoder) { e.Int64(it.VariantID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { e.Str(it.UnitPrice.String()) })
					})
				}
			})
		})
	})
}

func decodeStringField(r *http.Request, field string) (string, error) {
	body, err := readBody(r)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", nil
	}

	var value string
	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}

func decodeBulkStatus(r *http.Request) (ids []int64, status string, err error) {
	body, err := readBody(r)
	if err != nil {
		return nil, "", err
	}

	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderIds":
			return d.Arr(func(d *jx.Decoder) error {
				id, err := d.Int64()
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
		case "status":
			v, err := d.Str()
			if err != nil {
				return err
			}
			status = v
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, "", err
	}
	if len(ids) == 0 || status == "" {
		return nil, "", errors.New("missing orderIds or status")
	}
	return ids, status, nil
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<16))
}
