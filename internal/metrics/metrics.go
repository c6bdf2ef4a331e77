package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "borrowmybike_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"status"},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"fault_line"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_settlements_total",
			Help: "Total number of booking settlements by scenario",
		},
		[]string{"scenario"},
	)

	SettlementFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "borrowmybike_settlement_failures_total",
			Help: "Settlements that could not complete and need manual resolution",
		},
	)

	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_gateway_calls_total",
			Help: "Outbound payment gateway calls",
		},
		[]string{"op", "status"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_webhook_events_total",
			Help: "Inbound payment gateway webhook events",
		},
		[]string{"result"},
	)

	CreditsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_credits_issued_total",
			Help: "Credits issued to users",
		},
		[]string{"type"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "borrowmybike_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordCancellation(faultLine string) {
	BookingCancellationsTotal.WithLabelValues(faultLine).Inc()
}

func RecordSettlement(scenario string) {
	SettlementsTotal.WithLabelValues(scenario).Inc()
}

func RecordGatewayCall(op, status string) {
	GatewayCallsTotal.WithLabelValues(op, status).Inc()
}

func RecordWebhookEvent(result string) {
	WebhookEventsTotal.WithLabelValues(result).Inc()
}

func RecordCreditIssued(creditType string) {
	CreditsIssuedTotal.WithLabelValues(creditType).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
