package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/payment"
)

// paymentWebhook receives the gateway's asynchronous result callback.
//
// The gateway expects an acknowledgement regardless of the business
// outcome: a failed payment is compensated (reservations restored) inside
// the reconciler and still acknowledged with 200. Only an unknown
// correlation id is answered with 404.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	orderCode, resultCode, err := decodeWebhook(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	succeeded := resultCode == payment.ResultCodeSuccess
	if err := h.reconciler.HandleOutcome(r.Context(), orderCode, succeeded, resultCode); err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown payment correlation id")
			return
		}
		// Acknowledge anyway: the gateway retries on non-2xx and the
		// failure is already logged and compensated where possible.
		zctx.From(r.Context()).Error("webhook reconciliation failed",
			zap.String("order_code", orderCode),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("received", func(e *jx.Encoder) { e.Bool(true) })
		})
	})
}

// decodeWebhook extracts orderCode and resultCode from the gateway payload,
// ignoring any extra fields the gateway sends.
func decodeWebhook(body []byte) (orderCode, resultCode string, err error) {
	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderCode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			orderCode = v
		case "resultCode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			resultCode = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	if orderCode == "" || resultCode == "" {
		return "", "", errors.New("missing orderCode or resultCode")
	}
	return orderCode, resultCode, nil
}
