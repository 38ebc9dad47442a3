package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OutboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outbound_messages_total",
			Help: "Outbound send attempts by resulting status",
		},
		[]string{"status"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_events_total",
			Help: "Webhook requests by result",
		},
		[]string{"result"},
	)

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_login_attempts_total",
			Help: "Dashboard login attempts by result",
		},
		[]string{"result"},
	)

	Records = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_records",
			Help: "Stored message records by status",
		},
		[]string{"status"},
	)
)

// Webhook results.
const (
	WebhookProcessed      = "processed"
	WebhookInvalid        = "invalid"
	WebhookVerifyOK       = "verify_ok"
	WebhookVerifyRejected = "verify_rejected"
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(OutboundMessages)
		prometheus.MustRegister(WebhookEvents)
		prometheus.MustRegister(LoginAttempts)
		prometheus.MustRegister(Records)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
