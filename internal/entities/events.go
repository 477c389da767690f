package entities

import "time"

type Event interface {
	IsInternal() bool
}

// ChargeCaptured_v1 is published for charge.succeeded only; it drives
// both the mirror and the ticket issuance handlers.
type ChargeCaptured_v1 struct {
	Header EventHeader `json:"header"`
	Charge Charge      `json:"charge"`
}

func (e ChargeCaptured_v1) IsInternal() bool {
	return false
}

// ChargeUpdated_v1 covers charge.failed and charge.updated; mirror only,
// no ticket is issued for it.
type ChargeUpdated_v1 struct {
	Header EventHeader `json:"header"`
	Charge Charge      `json:"charge"`
}

func (e ChargeUpdated_v1) IsInternal() bool {
	return false
}

type CustomerUpserted_v1 struct {
	Header   EventHeader `json:"header"`
	Customer Customer    `json:"customer"`
}

func (e CustomerUpserted_v1) IsInternal() bool {
	return false
}

type CheckoutSessionCompleted_v1 struct {
	Header  EventHeader     `json:"header"`
	Session CheckoutSession `json:"session"`
}

func (e CheckoutSessionCompleted_v1) IsInternal() bool {
	return false
}

type PayoutPaid_v1 struct {
	Header EventHeader `json:"header"`
	Payout Payout      `json:"payout"`
}

func (e PayoutPaid_v1) IsInternal() bool {
	return false
}

type TicketIssued_v1 struct {
	Header EventHeader `json:"header"`

	TicketID     string `json:"ticket_id"`
	ChargeID     string `json:"charge_id"`
	PDFURL       string `json:"pdf_url"`
	PDFSizeBytes int    `json:"pdf_size_bytes"`
}

func (e TicketIssued_v1) IsInternal() bool {
	return true
}

type TicketValidated_v1 struct {
	Header EventHeader `json:"header"`

	TicketID    string    `json:"ticket_id"`
	ValidatedBy string    `json:"validated_by"`
	ValidatedAt time.Time `json:"validated_at"`
}

func (e TicketValidated_v1) IsInternal() bool {
	return true
}
