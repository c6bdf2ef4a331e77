package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/c6lbmb/borrowmybike-sub000/internal/ledger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/logger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/metrics"
)

// TimestampTolerance bounds how stale a signed webhook may be before it is
// rejected outright.
const TimestampTolerance = 5 * time.Minute

const (
	headerSignature = "X-Gateway-Signature"
	headerTimestamp = "X-Gateway-Timestamp"
)

// Event is a verified payment notification from the gateway.
type Event struct {
	Type        string `json:"type"`
	BookingID   int    `json:"booking_id"`
	PaymentType string `json:"payment_type"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
}

// BookingFlags is the subset of the booking repository the webhook needs.
// Both flips are guarded conditional updates, so redelivered webhooks are
// no-ops.
type BookingFlags interface {
	MarkBorrowerPaid(ctx context.Context, id int) (bool, error)
	MarkOwnerDepositPaid(ctx context.Context, id int) (bool, error)
}

type WebhookHandler struct {
	secret   string
	bookings BookingFlags
	payments ledger.Repository
	now      func() time.Time
}

func NewWebhookHandler(secret string, bookings BookingFlags, payments ledger.Repository) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		bookings: bookings,
		payments: payments,
		now:      time.Now,
	}
}

// Sign computes the webhook signature over "{timestamp}.{body}".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(timestampHeader, signature string, body []byte) bool {
	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return false
	}

	age := h.now().Sub(time.Unix(ts, 0))
	if age > TimestampTolerance || age < -TimestampTolerance {
		return false
	}

	expected := Sign(h.secret, ts, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Handle processes payment.succeeded events. Verified events flip the
// ledger row initiated→succeeded and the matching booking paid flag; a
// redelivered event finds both flips already done and still returns 200.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !h.verify(c.GetHeader(headerTimestamp), c.GetHeader(headerSignature), body) {
		metrics.RecordWebhookEvent("rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.RecordWebhookEvent("malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if event.Type != "payment.succeeded" {
		metrics.RecordWebhookEvent("ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()

	payment, err := h.payments.GetByBookingAndType(ctx, event.BookingID, event.PaymentType)
	if err != nil {
		logger.Error("webhook: payment row missing", "booking_id", event.BookingID, "type", event.PaymentType, "error", err)
		metrics.RecordWebhookEvent("unmatched")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment"})
		return
	}

	if event.AmountCents != payment.AmountCents {
		logger.Error("webhook: amount mismatch", "booking_id", event.BookingID, "type", event.PaymentType,
			"expected_cents", payment.AmountCents, "got_cents", event.AmountCents)
		metrics.RecordWebhookEvent("mismatched")
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount mismatch"})
		return
	}

	if _, err := h.payments.MarkSucceeded(ctx, payment.ID, event.Reference); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
		return
	}

	var flipped bool
	switch event.PaymentType {
	case ledger.TypeBorrowerBookingFee:
		flipped, err = h.bookings.MarkBorrowerPaid(ctx, event.BookingID)
	case ledger.TypeOwnerDeposit:
		flipped, err = h.bookings.MarkOwnerDepositPaid(ctx, event.BookingID)
	default:
		metrics.RecordWebhookEvent("ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update booking"})
		return
	}

	if flipped {
		metrics.RecordWebhookEvent("applied")
	} else {
		metrics.RecordWebhookEvent("duplicate")
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
