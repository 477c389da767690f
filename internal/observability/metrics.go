package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsync_webhook_events_total",
			Help: "Webhook events received, by Stripe event type and handling status",
		},
		[]string{"event_type", "status"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketsync_tickets_issued_total",
			Help: "Tickets issued, counted when the issued event is consumed",
		},
	)

	ticketPDFFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsync_ticket_pdf_failures_total",
			Help: "Ticket PDF pipeline failures, by stage (render, publish, link)",
		},
		[]string{"stage"},
	)

	validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsync_validations_total",
			Help: "Scan validations, by outcome",
		},
		[]string{"outcome"},
	)

	pollerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsync_poller_events_total",
			Help: "Events published by the reconciliation poller, by object type",
		},
		[]string{"object_type"},
	)
)

// TrackWebhookEvent counts a received webhook event. Status is one of
// accepted, ignored or rejected.
func TrackWebhookEvent(eventType, status string) {
	webhookEvents.WithLabelValues(eventType, status).Inc()
}

func TrackPDFFailure(stage string) {
	ticketPDFFailures.WithLabelValues(stage).Inc()
}

func TrackValidation(outcome string) {
	validations.WithLabelValues(outcome).Inc()
}

func TrackPollerEvent(objectType string) {
	pollerEvents.WithLabelValues(objectType).Inc()
}
