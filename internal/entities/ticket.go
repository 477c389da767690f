package entities

import "time"

const (
	TicketStatusGenerated = "generated"
	TicketStatusValidated = "validated"

	QRCodeStatusActive = "active"
)

// Ticket is one issued admission credential. Its identity (TicketID) is
// independent of the payment; ChargeID is the idempotency key that keeps
// issuance at one ticket per charge.
type Ticket struct {
	TicketID      string     `json:"ticket_id"`
	ChargeID      string     `json:"charge_id"`
	QRCodeID      string     `json:"qrcode_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	TicketType    string     `json:"ticket_type"`
	Quantity      int        `json:"quantity"`
	Price         Money      `json:"price"`
	PDFSizeBytes  int        `json:"pdf_size_bytes"`
	PDFURL        string     `json:"pdf_url"`
	Status        string     `json:"status"`
	ValidatedAt   *time.Time `json:"validated_at"`
	ValidatedBy   string     `json:"validated_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (t Ticket) Validated() bool {
	return t.Status == TicketStatusValidated
}

// QRCode is owned by exactly one ticket; the two are created together.
type QRCode struct {
	QRCodeID  string    `json:"qrcode_id"`
	TicketID  string    `json:"ticket_id"`
	Data      string    `json:"data"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
