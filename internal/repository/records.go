package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticketsync/internal/entities"
)

const (
	chargesTable   = "Charges"
	customersTable = "Customers"
	sessionsTable  = "Checkout_Sessions"
	payoutsTable   = "Payouts"
	receiptsTable  = "Receipts"
)

// RecordsRepo mirrors provider objects into their spreadsheet tables.
// Every write is an upsert on the object's provider id, so redelivered
// webhooks and poller overlap are harmless.
type RecordsRepo struct {
	store RecordStore
}

func NewRecordsRepo(store RecordStore) *RecordsRepo {
	return &RecordsRepo{store: store}
}

func (r *RecordsRepo) UpsertCharge(ctx context.Context, c entities.Charge) error {
	fields := map[string]any{
		"charge_id":         c.ChargeID,
		"created_at":        isoOrNil(c.CreatedAt),
		"status":            c.Status,
		"amount":            c.Amount.MajorUnits(),
		"currency":          c.Amount.Currency,
		"customer_id":       c.CustomerID,
		"customer_email":    c.CustomerEmail,
		"billing_name":      c.BillingName,
		"billing_phone":     c.BillingPhone,
		"description":       c.Description,
		"invoice_id":        c.InvoiceID,
		"payment_intent_id": c.PaymentIntentID,
		"receipt_url":       c.ReceiptURL,
		"livemode":          c.Livemode,
	}

	if _, err := r.store.Upsert(ctx, chargesTable, "charge_id", fields); err != nil {
		return fmt.Errorf("mirroring charge %s: %w", c.ChargeID, err)
	}
	return nil
}

func (r *RecordsRepo) UpsertCustomer(ctx context.Context, c entities.Customer) error {
	if c.Key() == "" {
		return fmt.Errorf("customer needs an id or an email")
	}

	fields := map[string]any{
		"customer_id": c.Key(),
		"name":        c.Name,
		"email":       c.Email,
		"phone":       c.Phone,
	}

	if _, err := r.store.Upsert(ctx, customersTable, "customer_id", fields); err != nil {
		return fmt.Errorf("mirroring customer %s: %w", c.Key(), err)
	}
	return nil
}

func (r *RecordsRepo) UpsertCheckoutSession(ctx context.Context, s entities.CheckoutSession) error {
	fields := map[string]any{
		"session_id":          s.SessionID,
		"created_at":          isoOrNil(s.CreatedAt),
		"status":              s.Status,
		"mode":                s.Mode,
		"amount_total":        s.AmountTotal.MajorUnits(),
		"currency":            s.AmountTotal.Currency,
		"customer_id":         s.CustomerID,
		"customer_email":      s.CustomerEmail,
		"payment_intent_id":   s.PaymentIntentID,
		"client_reference_id": s.ClientReferenceID,
		"livemode":            s.Livemode,
	}

	if _, err := r.store.Upsert(ctx, sessionsTable, "session_id", fields); err != nil {
		return fmt.Errorf("mirroring checkout session %s: %w", s.SessionID, err)
	}
	return nil
}

// UpsertReceipt stores the captured receipt, one row per charge. Line
// items are stringified, Airtable has no nested records.
func (r *RecordsRepo) UpsertReceipt(ctx context.Context, rc entities.Receipt) error {
	items, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("encoding receipt items for charge %s: %w", rc.ChargeID, err)
	}

	fields := map[string]any{
		"receipt_id":     rc.ReceiptID,
		"charge_id":      rc.ChargeID,
		"receipt_url":    rc.ReceiptURL,
		"receipt_number": rc.ReceiptNumber,
		"seller_name":    rc.SellerName,
		"amount_paid":    rc.AmountPaid.MajorUnits(),
		"currency":       rc.AmountPaid.Currency,
		"product_items":  string(items),
		"items_count":    len(rc.Items),
		"scraped_at":     rc.ScrapedAt.UTC().Format(time.RFC3339),
	}

	if _, err := r.store.Upsert(ctx, receiptsTable, "charge_id", fields); err != nil {
		return fmt.Errorf("mirroring receipt for charge %s: %w", rc.ChargeID, err)
	}
	return nil
}

func (r *RecordsRepo) UpsertPayout(ctx context.Context, p entities.Payout) error {
	fields := map[string]any{
		"payout_id":    p.PayoutID,
		"created_at":   isoOrNil(p.CreatedAt),
		"arrival_date": isoOrNil(p.ArrivalDate),
		"status":       p.Status,
		"amount":       p.Amount.MajorUnits(),
		"currency":     p.Amount.Currency,
	}

	if _, err := r.store.Upsert(ctx, payoutsTable, "payout_id", fields); err != nil {
		return fmt.Errorf("mirroring payout %s: %w", p.PayoutID, err)
	}
	return nil
}
