package entities

import "time"

// Receipt is the structured capture of a Stripe-hosted receipt page,
// linked to its charge.
type Receipt struct {
	ReceiptID     string     `json:"receipt_id"`
	ChargeID      string     `json:"charge_id"`
	ReceiptURL    string     `json:"receipt_url"`
	ReceiptNumber string     `json:"receipt_number"`
	SellerName    string     `json:"seller_name"`
	AmountPaid    Money      `json:"amount_paid"`
	Items         []LineItem `json:"items"`
	ScrapedAt     time.Time  `json:"scraped_at"`
}
