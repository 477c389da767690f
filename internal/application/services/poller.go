package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
	"ticketsync/internal/observability"
)

const (
	polledChargesKey  = "ticketsync:polled:charges"
	polledSessionsKey = "ticketsync:polled:sessions"
	polledPayoutsKey  = "ticketsync:polled:payouts"

	pollListLimit = 100
	pollWindow    = 48 * time.Hour
)

type PaymentLister interface {
	ListCharges(ctx context.Context, createdSince time.Time, limit int64) ([]entities.Charge, error)
	ListCheckoutSessions(ctx context.Context, limit int64) ([]entities.CheckoutSession, error)
	ListPayouts(ctx context.Context, limit int64) ([]entities.Payout, error)
}

// Poller is the catch-up path for webhook gaps: it periodically lists
// recent provider objects and feeds them through the same event flow the
// webhook uses. A redis set remembers what was already published so each
// object enters the pipeline once; the pipeline itself stays idempotent
// regardless.
type Poller struct {
	logger   zerolog.Logger
	payments PaymentLister
	eventBus EventBus
	rdb      *redis.Client
	interval time.Duration
}

func NewPoller(
	logger zerolog.Logger,
	payments PaymentLister,
	eventBus EventBus,
	rdb *redis.Client,
	interval time.Duration,
) *Poller {
	return &Poller{
		logger:   logger.With().Str("component", "poller").Logger(),
		payments: payments,
		eventBus: eventBus,
		rdb:      rdb,
		interval: interval,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	p.pollCharges(ctx)
	p.pollSessions(ctx)
	p.pollPayouts(ctx)
}

func (p *Poller) pollCharges(ctx context.Context) {
	charges, err := p.payments.ListCharges(ctx, time.Now().Add(-pollWindow), pollListLimit)
	if err != nil {
		p.logger.Error().Err(err).Msg("charge poll failed")
		return
	}

	for _, charge := range charges {
		if !p.firstSeen(ctx, polledChargesKey, charge.ChargeID) {
			continue
		}

		var event entities.Event
		if charge.Succeeded() {
			event = entities.ChargeCaptured_v1{Header: entities.NewEventHeader(), Charge: charge}
		} else {
			event = entities.ChargeUpdated_v1{Header: entities.NewEventHeader(), Charge: charge}
		}

		if err := p.eventBus.Publish(ctx, event); err != nil {
			p.logger.Error().Err(err).Str("charge_id", charge.ChargeID).Msg("poll event not published")
			p.forget(ctx, polledChargesKey, charge.ChargeID)
			continue
		}
		observability.TrackPollerEvent("charge")
	}
}

func (p *Poller) pollSessions(ctx context.Context) {
	sessions, err := p.payments.ListCheckoutSessions(ctx, pollListLimit)
	if err != nil {
		p.logger.Error().Err(err).Msg("session poll failed")
		return
	}

	for _, session := range sessions {
		if session.Status != "complete" || !p.firstSeen(ctx, polledSessionsKey, session.SessionID) {
			continue
		}

		if err := p.eventBus.Publish(ctx, entities.CheckoutSessionCompleted_v1{
			Header:  entities.NewEventHeader(),
			Session: session,
		}); err != nil {
			p.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("poll event not published")
			p.forget(ctx, polledSessionsKey, session.SessionID)
			continue
		}
		observability.TrackPollerEvent("session")
	}
}

func (p *Poller) pollPayouts(ctx context.Context) {
	payouts, err := p.payments.ListPayouts(ctx, pollListLimit)
	if err != nil {
		p.logger.Error().Err(err).Msg("payout poll failed")
		return
	}

	for _, payout := range payouts {
		if !p.firstSeen(ctx, polledPayoutsKey, payout.PayoutID) {
			continue
		}

		if err := p.eventBus.Publish(ctx, entities.PayoutPaid_v1{
			Header: entities.NewEventHeader(),
			Payout: payout,
		}); err != nil {
			p.logger.Error().Err(err).Str("payout_id", payout.PayoutID).Msg("poll event not published")
			p.forget(ctx, polledPayoutsKey, payout.PayoutID)
			continue
		}
		observability.TrackPollerEvent("payout")
	}
}

// firstSeen adds the id to the seen set; false means it was already
// there. With no redis configured the poller republishes and relies on
// downstream idempotency.
func (p *Poller) firstSeen(ctx context.Context, key, id string) bool {
	if p.rdb == nil {
		return true
	}

	added, err := p.rdb.SAdd(ctx, key, id).Result()
	if err != nil {
		p.logger.Warn().Err(err).Msg("seen-set unavailable, republishing")
		return true
	}
	return added == 1
}

func (p *Poller) forget(ctx context.Context, key, id string) {
	if p.rdb == nil {
		return
	}
	p.rdb.SRem(ctx, key, id)
}
