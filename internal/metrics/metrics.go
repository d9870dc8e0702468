// Package metrics holds the prometheus collectors of the billing service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on WebhookEvents
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeIgnored   = "ignored"
)

type Metrics struct {
	WebhookEvents     *prometheus.CounterVec
	WebhookRejections *prometheus.CounterVec
	WebhookDuration   *prometheus.HistogramVec
	AuditFailures     prometheus.Counter
	CreditsGranted    *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhookEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhook_events_total",
				Help: "Verified webhook events by type and processing outcome",
			},
			[]string{"event_type", "outcome"},
		),
		WebhookRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhook_rejections_total",
				Help: "Webhook requests rejected before dispatch",
			},
			[]string{"reason"},
		),
		WebhookDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_webhook_duration_seconds",
				Help:    "Duration of webhook dispatch in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),
		AuditFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_webhook_audit_failures_total",
				Help: "Failed webhook_event_log writes",
			},
		),
		CreditsGranted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_credits_granted_total",
				Help: "Credits added to user balances",
			},
			[]string{"plan", "interval"},
		),
		PublishFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_event_publish_failures_total",
				Help: "Billing events that could not be published",
			},
			[]string{"topic"},
		),
	}
}

// ObserveWebhook records one dispatched event.
func (m *Metrics) ObserveWebhook(eventType, outcome string, started time.Time) {
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	m.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(started).Seconds())
}
