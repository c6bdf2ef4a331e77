package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/bookings", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/bookings", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/auth/login", "401", 0.05)

	successCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "401"))

	assert.Equal(t, float64(2), successCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()

	RecordBooking("created")
	RecordBooking("created")

	count := testutil.ToFloat64(BookingsTotal.WithLabelValues("created"))
	assert.Equal(t, float64(2), count)
}

func TestRecordCancellation(t *testing.T) {
	BookingCancellationsTotal.Reset()

	RecordCancellation("early")
	RecordCancellation("late")
	RecordCancellation("late")

	early := testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("early"))
	late := testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("late"))

	assert.Equal(t, float64(1), early)
	assert.Equal(t, float64(2), late)
}

func TestRecordSettlement(t *testing.T) {
	SettlementsTotal.Reset()

	RecordSettlement("happy_path")
	RecordSettlement("owner_fault")
	RecordSettlement("happy_path")

	happy := testutil.ToFloat64(SettlementsTotal.WithLabelValues("happy_path"))
	ownerFault := testutil.ToFloat64(SettlementsTotal.WithLabelValues("owner_fault"))

	assert.Equal(t, float64(2), happy)
	assert.Equal(t, float64(1), ownerFault)
}

func TestRecordGatewayCall(t *testing.T) {
	GatewayCallsTotal.Reset()

	RecordGatewayCall("charge", "ok")
	RecordGatewayCall("refund", "error")

	ok := testutil.ToFloat64(GatewayCallsTotal.WithLabelValues("charge", "ok"))
	failed := testutil.ToFloat64(GatewayCallsTotal.WithLabelValues("refund", "error"))

	assert.Equal(t, float64(1), ok)
	assert.Equal(t, float64(1), failed)
}

func TestRecordWebhookEvent(t *testing.T) {
	WebhookEventsTotal.Reset()

	RecordWebhookEvent("applied")
	RecordWebhookEvent("rejected")
	RecordWebhookEvent("applied")

	applied := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("applied"))
	rejected := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("rejected"))

	assert.Equal(t, float64(2), applied)
	assert.Equal(t, float64(1), rejected)
}

func TestRecordCreditIssued(t *testing.T) {
	CreditsIssuedTotal.Reset()

	RecordCreditIssued("rebook")

	count := testutil.ToFloat64(CreditsIssuedTotal.WithLabelValues("rebook"))
	assert.Equal(t, float64(1), count)
}

func TestRecordEmail(t *testing.T) {
	EmailsSentTotal.Reset()

	RecordEmail("notification", "sent")
	RecordEmail("notification", "failed")

	sent := testutil.ToFloat64(EmailsSentTotal.WithLabelValues("notification", "sent"))
	failed := testutil.ToFloat64(EmailsSentTotal.WithLabelValues("notification", "failed"))

	assert.Equal(t, float64(1), sent)
	assert.Equal(t, float64(1), failed)
}
