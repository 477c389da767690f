package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"ticketsync/internal/entities"
	"ticketsync/internal/idempotency"
	"ticketsync/internal/infrastructure/clients"
	"ticketsync/internal/observability"
)

// Webhook body size cap, per Stripe's own guidance.
const maxWebhookBody = 65536

// WebhookHandler receives Stripe webhook deliveries. Verified events are
// republished on the message bus keyed by the Stripe event id, so a
// redelivered webhook collapses onto the same idempotency key. An
// unrecognized event type is acked so Stripe stops retrying it.
func (s *Server) WebhookHandler(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.String(http.StatusBadRequest, "cannot read body")
	}

	event, err := webhook.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		observability.TrackWebhookEvent("unknown", "rejected")
		s.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return c.String(http.StatusBadRequest, "invalid signature")
	}

	ctx := idempotency.WithKey(c.Request().Context(), event.ID)

	status, err := s.dispatchStripeEvent(ctx, event)
	observability.TrackWebhookEvent(string(event.Type), status)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("stripe_event_id", event.ID).
			Str("stripe_event_type", string(event.Type)).
			Msg("webhook dispatch failed")

		// Non-2xx makes Stripe redeliver; the idempotency key absorbs
		// the duplicate once the bus is back.
		return c.String(http.StatusInternalServerError, "dispatch failed")
	}

	return c.NoContent(http.StatusOK)
}

// dispatchStripeEvent maps a verified Stripe event onto the internal bus.
// The returned status is accepted, ignored or failed.
func (s *Server) dispatchStripeEvent(ctx context.Context, event stripe.Event) (string, error) {
	header := entities.NewEventHeaderWithIdempotencyKey(event.ID)

	switch event.Type {
	case "charge.succeeded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return "failed", err
		}
		if err := s.eventBus.Publish(ctx, entities.ChargeCaptured_v1{
			Header: header,
			Charge: clients.ChargeFromStripe(&ch),
		}); err != nil {
			return "failed", err
		}

	case "charge.failed", "charge.updated", "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return "failed", err
		}
		if err := s.eventBus.Publish(ctx, entities.ChargeUpdated_v1{
			Header: header,
			Charge: clients.ChargeFromStripe(&ch),
		}); err != nil {
			return "failed", err
		}

	case "customer.created", "customer.updated":
		var cu stripe.Customer
		if err := json.Unmarshal(event.Data.Raw, &cu); err != nil {
			return "failed", err
		}
		if err := s.eventBus.Publish(ctx, entities.CustomerUpserted_v1{
			Header:   header,
			Customer: clients.CustomerFromStripe(&cu),
		}); err != nil {
			return "failed", err
		}

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return "failed", err
		}
		if err := s.eventBus.Publish(ctx, entities.CheckoutSessionCompleted_v1{
			Header:  header,
			Session: clients.CheckoutSessionFromStripe(&sess),
		}); err != nil {
			return "failed", err
		}

	case "payout.paid", "payout.updated":
		var po stripe.Payout
		if err := json.Unmarshal(event.Data.Raw, &po); err != nil {
			return "failed", err
		}
		if err := s.eventBus.Publish(ctx, entities.PayoutPaid_v1{
			Header: header,
			Payout: clients.PayoutFromStripe(&po),
		}); err != nil {
			return "failed", err
		}

	default:
		s.logger.Debug().
			Str("stripe_event_type", string(event.Type)).
			Msg("ignoring unhandled webhook event type")
		return "ignored", nil
	}

	return "accepted", nil
}
