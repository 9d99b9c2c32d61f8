// Package gateway is the HTTP client for the external payment provider.
// The provider's contract is narrow: create a hosted checkout link for an
// order, then deliver the result asynchronously via webhook.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/order"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Client calls the provider's create-payment endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway client for the given provider base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreatePaymentLink requests a hosted checkout link for the order. The
// provider correlates the eventual webhook by the transaction id derived
// from the order number.
func (c *Client) CreatePaymentLink(ctx context.Context, o *order.Order) (string, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderCode", func(e *jx.Encoder) { e.Str(payment.CorrelationID(o.Number)) })
		e.Field("amount", func(e *jx.Encoder) { e.Str(o.FinalAmount.String()) })
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment-links", bytes.NewReader(e.Bytes()))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call payment provider")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", errors.Wrap(err, "read provider response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("payment provider returned %d", resp.StatusCode)
	}

	var link string
	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "payUrl" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		link = v
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "decode provider response")
	}
	if link == "" {
		return "", errors.New("provider response missing payUrl")
	}
	return link, nil
}
