package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ticketsync/internal/entities"
	"ticketsync/internal/infrastructure/clients"
)

const (
	ticketsTable = "Tickets"
	qrCodesTable = "QRCodes"
)

// TicketsRepo persists tickets and their QR codes. The Tickets table
// merges on charge_id, which is what keeps issuance idempotent even when
// the same payment event is delivered twice.
type TicketsRepo struct {
	store RecordStore
}

func NewTicketsRepo(store RecordStore) *TicketsRepo {
	return &TicketsRepo{store: store}
}

// StoredTicket couples the ticket with the backend record id needed for
// in-place updates.
type StoredTicket struct {
	entities.Ticket
	RecordID string
}

func (r *TicketsRepo) UpsertTicket(ctx context.Context, t entities.Ticket) (StoredTicket, error) {
	fields := map[string]any{
		"ticket_id":      t.TicketID,
		"charge_id":      t.ChargeID,
		"qrcode_id":      t.QRCodeID,
		"customer_name":  t.CustomerName,
		"customer_email": t.CustomerEmail,
		"ticket_type":    t.TicketType,
		"quantity":       t.Quantity,
		"price":          t.Price.MajorUnits(),
		"currency":       t.Price.Currency,
		"pdf_size_bytes": t.PDFSizeBytes,
		"status":         t.Status,
		"created_at":     t.CreatedAt.UTC().Format(time.RFC3339),
	}

	rec, err := r.store.Upsert(ctx, ticketsTable, "charge_id", fields)
	if err != nil {
		return StoredTicket{}, fmt.Errorf("upserting ticket for charge %s: %w", t.ChargeID, err)
	}

	return StoredTicket{Ticket: t, RecordID: rec.ID}, nil
}

func (r *TicketsRepo) UpsertQRCode(ctx context.Context, qr entities.QRCode) error {
	fields := map[string]any{
		"qrcode_id":  qr.QRCodeID,
		"ticket_id":  qr.TicketID,
		"data":       qr.Data,
		"status":     qr.Status,
		"created_at": qr.CreatedAt.UTC().Format(time.RFC3339),
	}

	if _, err := r.store.Upsert(ctx, qrCodesTable, "qrcode_id", fields); err != nil {
		return fmt.Errorf("upserting qr code %s: %w", qr.QRCodeID, err)
	}
	return nil
}

func (r *TicketsRepo) FindByChargeID(ctx context.Context, chargeID string) (StoredTicket, error) {
	return r.findBy(ctx, "charge_id", chargeID)
}

func (r *TicketsRepo) FindByTicketID(ctx context.Context, ticketID string) (StoredTicket, error) {
	return r.findBy(ctx, "ticket_id", ticketID)
}

func (r *TicketsRepo) findBy(ctx context.Context, field, value string) (StoredTicket, error) {
	rec, err := r.store.FindBy(ctx, ticketsTable, field, value)
	if err != nil {
		if errors.Is(err, clients.ErrRecordNotFound) {
			return StoredTicket{}, fmt.Errorf("ticket where %s=%s: %w", field, value, ErrNotFound)
		}
		return StoredTicket{}, err
	}

	return ticketFromRecord(rec), nil
}

// SetPDF links the published document back to the ticket record: URL,
// byte size, and the attachment field Airtable fills from the URL.
func (r *TicketsRepo) SetPDF(ctx context.Context, recordID, pdfURL string, sizeBytes int, filename string) error {
	fields := map[string]any{
		"pdf_url":        pdfURL,
		"pdf_size_bytes": sizeBytes,
		"pdf": []map[string]any{
			{"url": pdfURL, "filename": filename},
		},
	}

	if _, err := r.store.Update(ctx, ticketsTable, recordID, fields); err != nil {
		return fmt.Errorf("linking pdf to record %s: %w", recordID, err)
	}
	return nil
}

// MarkValidated commits generated → validated. The transition is checked
// here as well as in the validation service, so a doubled confirm stays a
// no-op instead of rewriting validated_at.
func (r *TicketsRepo) MarkValidated(ctx context.Context, ticketID, validatedBy string, at time.Time) error {
	stored, err := r.FindByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}

	if stored.Validated() {
		return nil
	}

	fields := map[string]any{
		"status":       entities.TicketStatusValidated,
		"validated_at": at.UTC().Format(time.RFC3339),
		"validated_by": validatedBy,
	}

	if _, err := r.store.Update(ctx, ticketsTable, stored.RecordID, fields); err != nil {
		return fmt.Errorf("marking ticket %s validated: %w", ticketID, err)
	}
	return nil
}

type TicketStats struct {
	Total      int `json:"total"`
	Generated  int `json:"generated"`
	Validated  int `json:"validated"`
	MissingPDF int `json:"missing_pdf"`
}

func (r *TicketsRepo) Stats(ctx context.Context) (TicketStats, error) {
	records, err := r.store.List(ctx, ticketsTable, "status", "pdf_url")
	if err != nil {
		return TicketStats{}, err
	}

	stats := TicketStats{Total: len(records)}
	for _, rec := range records {
		switch fieldString(rec.Fields, "status") {
		case entities.TicketStatusValidated:
			stats.Validated++
		default:
			stats.Generated++
		}
		if fieldString(rec.Fields, "pdf_url") == "" {
			stats.MissingPDF++
		}
	}

	return stats, nil
}

// TicketsMissingPDF lists tickets whose render or upload previously
// failed, for the regenerate pass.
func (r *TicketsRepo) TicketsMissingPDF(ctx context.Context) ([]StoredTicket, error) {
	records, err := r.store.List(ctx, ticketsTable,
		"ticket_id", "charge_id", "qrcode_id", "customer_name", "customer_email",
		"ticket_type", "quantity", "price", "currency", "status", "pdf_url")
	if err != nil {
		return nil, err
	}

	var missing []StoredTicket
	for _, rec := range records {
		if fieldString(rec.Fields, "pdf_url") == "" {
			missing = append(missing, ticketFromRecord(rec))
		}
	}

	return missing, nil
}

func ticketFromRecord(rec clients.Record) StoredTicket {
	f := rec.Fields
	return StoredTicket{
		RecordID: rec.ID,
		Ticket: entities.Ticket{
			TicketID:      fieldString(f, "ticket_id"),
			ChargeID:      fieldString(f, "charge_id"),
			QRCodeID:      fieldString(f, "qrcode_id"),
			CustomerName:  fieldString(f, "customer_name"),
			CustomerEmail: fieldString(f, "customer_email"),
			TicketType:    fieldString(f, "ticket_type"),
			Quantity:      fieldInt(f, "quantity"),
			Price: entities.Money{
				Amount:   decimal.NewFromFloat(fieldFloat(f, "price")),
				Currency: fieldString(f, "currency"),
			},
			PDFSizeBytes: fieldInt(f, "pdf_size_bytes"),
			PDFURL:       fieldString(f, "pdf_url"),
			Status:       fieldString(f, "status"),
			ValidatedAt:  fieldTime(f, "validated_at"),
			ValidatedBy:  fieldString(f, "validated_by"),
		},
	}
}
