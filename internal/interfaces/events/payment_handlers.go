package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
)

// MirrorChargeHandler copies every captured charge into the Charges
// table. It runs independently of ticket issuance; a broken issuance
// never blocks the mirror and vice versa.
func (h *Handler) MirrorChargeHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"mirror_charge_handler",
		func(ctx context.Context, event *entities.ChargeCaptured_v1) error {
			return h.syncService.SyncCharge(ctx, event.Charge)
		},
	)
}

// MirrorChargeUpdateHandler mirrors failed and updated charges. No
// ticket is ever issued from this stream.
func (h *Handler) MirrorChargeUpdateHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"mirror_charge_update_handler",
		func(ctx context.Context, event *entities.ChargeUpdated_v1) error {
			return h.syncService.SyncCharge(ctx, event.Charge)
		},
	)
}

// IssueTicketHandler runs the issuance pipeline for a captured charge.
// Only a persist failure propagates and nacks the message for
// redelivery; the pipeline absorbs render and upload problems as
// partial success.
func (h *Handler) IssueTicketHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"issue_ticket_handler",
		func(ctx context.Context, event *entities.ChargeCaptured_v1) error {
			if !event.Charge.Succeeded() {
				zerolog.Ctx(ctx).Warn().
					Str("charge_id", event.Charge.ChargeID).
					Str("status", event.Charge.Status).
					Msg("captured event for non-succeeded charge, skipping issuance")
				return nil
			}

			_, err := h.issuanceService.Issue(ctx, event.Charge)
			return err
		},
	)
}

func (h *Handler) MirrorCustomerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"mirror_customer_handler",
		func(ctx context.Context, event *entities.CustomerUpserted_v1) error {
			return h.syncService.SyncCustomer(ctx, event.Customer)
		},
	)
}

func (h *Handler) MirrorCheckoutSessionHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"mirror_checkout_session_handler",
		func(ctx context.Context, event *entities.CheckoutSessionCompleted_v1) error {
			return h.syncService.SyncCheckoutSession(ctx, event.Session)
		},
	)
}

func (h *Handler) MirrorPayoutHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"mirror_payout_handler",
		func(ctx context.Context, event *entities.PayoutPaid_v1) error {
			return h.syncService.SyncPayout(ctx, event.Payout)
		},
	)
}
