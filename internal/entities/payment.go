package entities

import "time"

// Charge is the typed view of a Stripe charge, mapped at the boundary
// where the webhook payload (or poller response) is received.
type Charge struct {
	ChargeID        string     `json:"charge_id"`
	Status          string     `json:"status"`
	Amount          Money      `json:"amount"`
	CustomerID      string     `json:"customer_id"`
	CustomerEmail   string     `json:"customer_email"`
	BillingName     string     `json:"billing_name"`
	BillingPhone    string     `json:"billing_phone"`
	Description     string     `json:"description"`
	InvoiceID       string     `json:"invoice_id"`
	PaymentIntentID string     `json:"payment_intent_id"`
	ReceiptURL      string     `json:"receipt_url"`
	Livemode        bool       `json:"livemode"`
	CreatedAt       *time.Time `json:"created_at"`
}

func (c Charge) Succeeded() bool {
	return c.Status == "succeeded"
}

type Customer struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Key is the merge key for the Customers table. Guest checkouts have no
// Stripe customer id, the email stands in for it.
func (c Customer) Key() string {
	if c.CustomerID != "" {
		return c.CustomerID
	}
	return c.Email
}

type CheckoutSession struct {
	SessionID         string     `json:"session_id"`
	Status            string     `json:"status"`
	Mode              string     `json:"mode"`
	AmountTotal       Money      `json:"amount_total"`
	CustomerID        string     `json:"customer_id"`
	CustomerEmail     string     `json:"customer_email"`
	PaymentIntentID   string     `json:"payment_intent_id"`
	ClientReferenceID string     `json:"client_reference_id"`
	Livemode          bool       `json:"livemode"`
	CreatedAt         *time.Time `json:"created_at"`
}

type Payout struct {
	PayoutID    string     `json:"payout_id"`
	Status      string     `json:"status"`
	Amount      Money      `json:"amount"`
	CreatedAt   *time.Time `json:"created_at"`
	ArrivalDate *time.Time `json:"arrival_date"`
}

// LineItem is one purchased position printed on the ticket.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      Money  `json:"amount"`
}
