// Package qrpayload encodes and decodes the text payload embedded in
// ticket QR codes. The payload is deliberately plain text: the ticket id
// is an opaque UUID and the real authorization check happens against the
// ticket store, not against the QR content.
package qrpayload

import (
	"errors"
	"strings"
)

const (
	prefix = "TICKET"

	// emailPlaceholder keeps the field count constant when the customer
	// has no email, so parsing never has to guess.
	emailPlaceholder = "N/A"
)

var ErrMalformedPayload = errors.New("malformed qr payload")

type Payload struct {
	TicketID string
	// Email is informational only; lookups always go through TicketID.
	Email string
}

// Encode produces "TICKET:<ticket_id>:<email-or-N/A>". The ticket id must
// not contain a colon, UUIDs never do.
func Encode(ticketID, customerEmail string) string {
	if customerEmail == "" {
		customerEmail = emailPlaceholder
	}
	return prefix + ":" + ticketID + ":" + customerEmail
}

func Decode(payload string) (Payload, error) {
	if !strings.HasPrefix(payload, prefix+":") {
		return Payload{}, ErrMalformedPayload
	}

	parts := strings.Split(payload, ":")
	if len(parts) < 2 || parts[1] == "" {
		return Payload{}, ErrMalformedPayload
	}

	p := Payload{TicketID: parts[1]}
	if len(parts) > 2 {
		p.Email = strings.Join(parts[2:], ":")
	}

	return p, nil
}
