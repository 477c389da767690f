package clients

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"ticketsync/internal/entities"
)

// StripeClient pulls payment objects from the Stripe API. The webhook is
// the primary source; this client backs the manual-issue endpoint and the
// catch-up poller.
type StripeClient struct {
	api *client.API
}

func NewStripeClient(apiKey string) *StripeClient {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeClient{api: api}
}

func (c *StripeClient) GetCharge(ctx context.Context, chargeID string) (entities.Charge, error) {
	params := &stripe.ChargeParams{
		Params: stripe.Params{Context: ctx},
	}

	ch, err := c.api.Charges.Get(chargeID, params)
	if err != nil {
		return entities.Charge{}, fmt.Errorf("retrieving charge %s: %w", chargeID, err)
	}

	return ChargeFromStripe(ch), nil
}

func (c *StripeClient) ListCharges(ctx context.Context, createdSince time.Time, limit int64) ([]entities.Charge, error) {
	params := &stripe.ChargeListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(limit)},
	}
	if !createdSince.IsZero() {
		params.CreatedRange = &stripe.RangeQueryParams{
			GreaterThanOrEqual: createdSince.Unix(),
		}
	}

	var charges []entities.Charge
	iter := c.api.Charges.List(params)
	for iter.Next() {
		charges = append(charges, ChargeFromStripe(iter.Charge()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing charges: %w", err)
	}

	return charges, nil
}

func (c *StripeClient) ListCheckoutSessions(ctx context.Context, limit int64) ([]entities.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(limit)},
	}

	var sessions []entities.CheckoutSession
	iter := c.api.CheckoutSessions.List(params)
	for iter.Next() {
		sessions = append(sessions, CheckoutSessionFromStripe(iter.CheckoutSession()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing checkout sessions: %w", err)
	}

	return sessions, nil
}

func (c *StripeClient) ListPayouts(ctx context.Context, limit int64) ([]entities.Payout, error) {
	params := &stripe.PayoutListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(limit)},
	}

	var payouts []entities.Payout
	iter := c.api.Payouts.List(params)
	for iter.Next() {
		payouts = append(payouts, PayoutFromStripe(iter.Payout()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing payouts: %w", err)
	}

	return payouts, nil
}

// ChargeFromStripe maps the provider object onto the typed record used
// everywhere past the boundary.
func ChargeFromStripe(ch *stripe.Charge) entities.Charge {
	out := entities.Charge{
		ChargeID:    ch.ID,
		Status:      string(ch.Status),
		Amount:      entities.MoneyFromMinorUnits(ch.Amount, string(ch.Currency)),
		Description: ch.Description,
		ReceiptURL:  ch.ReceiptURL,
		Livemode:    ch.Livemode,
		CreatedAt:   unixTime(ch.Created),
	}

	if ch.BillingDetails != nil {
		out.CustomerEmail = ch.BillingDetails.Email
		out.BillingName = ch.BillingDetails.Name
		out.BillingPhone = ch.BillingDetails.Phone
	}
	if ch.Customer != nil {
		out.CustomerID = ch.Customer.ID
	}
	if ch.Invoice != nil {
		out.InvoiceID = ch.Invoice.ID
	}
	if ch.PaymentIntent != nil {
		out.PaymentIntentID = ch.PaymentIntent.ID
	}

	return out
}

func CustomerFromStripe(cu *stripe.Customer) entities.Customer {
	return entities.Customer{
		CustomerID: cu.ID,
		Name:       cu.Name,
		Email:      cu.Email,
		Phone:      cu.Phone,
	}
}

func CheckoutSessionFromStripe(s *stripe.CheckoutSession) entities.CheckoutSession {
	out := entities.CheckoutSession{
		SessionID:         s.ID,
		Status:            string(s.Status),
		Mode:              string(s.Mode),
		AmountTotal:       entities.MoneyFromMinorUnits(s.AmountTotal, string(s.Currency)),
		ClientReferenceID: s.ClientReferenceID,
		Livemode:          s.Livemode,
		CreatedAt:         unixTime(s.Created),
	}

	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}

	return out
}

func PayoutFromStripe(p *stripe.Payout) entities.Payout {
	return entities.Payout{
		PayoutID:    p.ID,
		Status:      string(p.Status),
		Amount:      entities.MoneyFromMinorUnits(p.Amount, string(p.Currency)),
		CreatedAt:   unixTime(p.Created),
		ArrivalDate: unixTime(p.ArrivalDate),
	}
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
