// Package gateway talks to the external payment provider: outbound charge
// and refund calls, and the inbound payment webhook.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/c6lbmb/borrowmybike-sub000/internal/metrics"
)

// Error is a failed gateway call. Callers treat it as retriable-with-
// fallback: a refund that fails degrades to a credit instead of blocking
// settlement.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// IdempotencyKey derives the key for one money movement from the facts that
// identify it, so a network retry of the same movement can never apply twice.
func IdempotencyKey(bookingID, paymentID int, amountCents int64) string {
	return fmt.Sprintf("bk%d-pm%d-amt%d", bookingID, paymentID, amountCents)
}

type ChargeRequest struct {
	BookingID   int    `json:"booking_id"`
	PaymentID   int    `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	PaymentType string `json:"payment_type"`
	Description string `json:"description"`
}

type Charge struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCharge opens a checkout session for an inbound payment. The actual
// paid flag only flips later, when the signed webhook confirms the charge.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	req.Currency = defaultCurrency(req.Currency)

	var charge Charge
	idemKey := IdempotencyKey(req.BookingID, req.PaymentID, req.AmountCents)
	if err := c.post(ctx, "/v1/charges", idemKey, req, &charge); err != nil {
		metrics.RecordGatewayCall("charge", "error")
		return nil, err
	}

	metrics.RecordGatewayCall("charge", "ok")
	return &charge, nil
}

type refundRequest struct {
	ChargeReference string `json:"charge_reference"`
	AmountCents     int64  `json:"amount_cents"`
}

type refundResponse struct {
	RefundReference string `json:"refund_reference"`
}

// Refund refunds amountCents of a previously confirmed charge.
func (c *Client) Refund(ctx context.Context, chargeRef string, amountCents int64, idempotencyKey string) (string, error) {
	req := refundRequest{ChargeReference: chargeRef, AmountCents: amountCents}

	var resp refundResponse
	if err := c.post(ctx, "/v1/refunds", idempotencyKey, req, &resp); err != nil {
		metrics.RecordGatewayCall("refund", "error")
		return "", err
	}

	metrics.RecordGatewayCall("refund", "ok")
	return resp.RefundReference, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: string(data)}
	}

	return json.Unmarshal(data, out)
}

func defaultCurrency(cur string) string {
	if cur == "" {
		return "KRW"
	}
	return cur
}
