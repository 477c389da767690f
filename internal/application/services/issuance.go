package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
	"ticketsync/internal/idempotency"
	"ticketsync/internal/infrastructure/clients"
	"ticketsync/internal/observability"
	"ticketsync/internal/qrpayload"
	"ticketsync/internal/render"
	"ticketsync/internal/repository"
)

type TicketsRepository interface {
	FindByChargeID(ctx context.Context, chargeID string) (repository.StoredTicket, error)
	FindByTicketID(ctx context.Context, ticketID string) (repository.StoredTicket, error)
	UpsertTicket(ctx context.Context, t entities.Ticket) (repository.StoredTicket, error)
	UpsertQRCode(ctx context.Context, qr entities.QRCode) error
	SetPDF(ctx context.Context, recordID, pdfURL string, sizeBytes int, filename string) error
	TicketsMissingPDF(ctx context.Context) ([]repository.StoredTicket, error)
}

type Renderer interface {
	Render(ctx context.Context, ticket render.Ticket) ([]byte, error)
}

type AttachmentPublisher interface {
	Publish(ctx context.Context, name string, content []byte) (clients.PublishResult, error)
}

type EventBus interface {
	Publish(ctx context.Context, event any) error
}

type AuditLog interface {
	Append(ctx context.Context, entry repository.LogEntry)
}

// IssuanceService runs the ticket pipeline for a succeeded charge:
// reuse-or-mint identifiers, persist QR and ticket records, render the
// PDF, publish it, link the URL back. The ticket row is persisted before
// any rendering so a payment observed is never lost to a render or
// upload failure.
type IssuanceService struct {
	logger    zerolog.Logger
	tickets   TicketsRepository
	renderer  Renderer
	publisher AttachmentPublisher
	eventBus  EventBus
	auditLog  AuditLog
}

func NewIssuanceService(
	logger zerolog.Logger,
	tickets TicketsRepository,
	renderer Renderer,
	publisher AttachmentPublisher,
	eventBus EventBus,
	auditLog AuditLog,
) *IssuanceService {
	return &IssuanceService{
		logger:    logger.With().Str("component", "issuance").Logger(),
		tickets:   tickets,
		renderer:  renderer,
		publisher: publisher,
		eventBus:  eventBus,
		auditLog:  auditLog,
	}
}

// Issue is the idempotent operation: it fills gaps only. An existing
// ticket that already has its PDF is returned untouched; an existing
// ticket without one gets its document re-rendered and linked.
func (s *IssuanceService) Issue(ctx context.Context, charge entities.Charge) (entities.Ticket, error) {
	return s.issue(ctx, charge, false)
}

// Regenerate always re-renders and re-uploads, reusing the existing
// identifiers. Meant for operator-triggered fixes of broken documents.
func (s *IssuanceService) Regenerate(ctx context.Context, charge entities.Charge) (entities.Ticket, error) {
	return s.issue(ctx, charge, true)
}

// RegenerateStored rebuilds the document for a ticket already in the
// store, without needing the originating charge object.
func (s *IssuanceService) RegenerateStored(ctx context.Context, ticketID string) (entities.Ticket, error) {
	stored, err := s.tickets.FindByTicketID(ctx, ticketID)
	if err != nil {
		return entities.Ticket{}, err
	}

	s.renderAndLink(ctx, &stored)
	return stored.Ticket, nil
}

// FillGaps sweeps the store for tickets whose document never made it
// and retries the render/publish tail for each. Returns how many got a
// PDF this pass.
func (s *IssuanceService) FillGaps(ctx context.Context) (int, error) {
	missing, err := s.tickets.TicketsMissingPDF(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing tickets without pdf: %w", err)
	}

	filled := 0
	for i := range missing {
		s.renderAndLink(ctx, &missing[i])
		if missing[i].PDFURL != "" {
			filled++
		}
	}

	s.logger.Info().
		Int("missing", len(missing)).
		Int("filled", filled).
		Msg("pdf backfill sweep finished")
	return filled, nil
}

func (s *IssuanceService) issue(ctx context.Context, charge entities.Charge, force bool) (entities.Ticket, error) {
	logger := s.logger.With().Str("charge_id", charge.ChargeID).Logger()

	if charge.ChargeID == "" {
		return entities.Ticket{}, fmt.Errorf("charge id is required for issuance")
	}

	// Step 1: idempotency check. A failed lookup is fatal, issuing
	// blind could mint a second ticket for the same payment.
	existing, err := s.tickets.FindByChargeID(ctx, charge.ChargeID)
	found := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return entities.Ticket{}, fmt.Errorf("idempotency lookup for charge %s: %w", charge.ChargeID, err)
	}

	if found && existing.PDFURL != "" && !force {
		logger.Info().Str("ticket_id", existing.TicketID).Msg("ticket already issued, nothing to fill")
		return existing.Ticket, nil
	}

	ticket := s.buildTicket(charge, existing, found)
	logger = logger.With().Str("ticket_id", ticket.TicketID).Logger()

	// Steps 3-4: QR payload and its record. A failed QR row is logged
	// and skipped, the payload itself lives on in the rendered code.
	payload := qrpayload.Encode(ticket.TicketID, charge.CustomerEmail)
	qr := entities.QRCode{
		QRCodeID:  ticket.QRCodeID,
		TicketID:  ticket.TicketID,
		Data:      payload,
		Status:    entities.QRCodeStatusActive,
		CreatedAt: ticket.CreatedAt,
	}
	if err := s.tickets.UpsertQRCode(ctx, qr); err != nil {
		logger.Error().Err(err).Msg("qr code record not persisted")
	}

	// Step 5: the ticket row, before any rendering. This is the only
	// step whose failure fails the pipeline.
	stored, err := s.tickets.UpsertTicket(ctx, ticket)
	if err != nil {
		s.auditLog.Append(ctx, repository.LogEntry{
			Level: "ERROR", Module: "issuance", Action: "persist_ticket", Status: "error",
			ObjectType: "ticket", ObjectID: ticket.TicketID, ErrorDetails: err.Error(),
		})
		return entities.Ticket{}, fmt.Errorf("persisting ticket for charge %s: %w", charge.ChargeID, err)
	}

	// Steps 6-8 degrade to partial success.
	s.renderAndLink(ctx, &stored)

	if err := s.eventBus.Publish(ctx, entities.TicketIssued_v1{
		Header:       entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx) + stored.TicketID),
		TicketID:     stored.TicketID,
		ChargeID:     stored.ChargeID,
		PDFURL:       stored.PDFURL,
		PDFSizeBytes: stored.PDFSizeBytes,
	}); err != nil {
		logger.Error().Err(err).Msg("ticket issued event not published")
	}

	logger.Info().
		Int("pdf_size_bytes", stored.PDFSizeBytes).
		Bool("pdf_linked", stored.PDFURL != "").
		Msg("ticket issued")

	return stored.Ticket, nil
}

// buildTicket reuses found identifiers so a duplicate delivery never
// re-mints and breaks the ticket/QR pairing.
func (s *IssuanceService) buildTicket(charge entities.Charge, existing repository.StoredTicket, found bool) entities.Ticket {
	if found {
		return existing.Ticket
	}

	name := charge.BillingName
	if name == "" {
		name = "Guest"
	}
	ticketType := charge.Description
	if ticketType == "" {
		ticketType = "Event Ticket"
	}

	return entities.Ticket{
		TicketID:      uuid.NewString(),
		ChargeID:      charge.ChargeID,
		QRCodeID:      uuid.NewString(),
		CustomerName:  name,
		CustomerEmail: charge.CustomerEmail,
		TicketType:    ticketType,
		Quantity:      1,
		Price:         charge.Amount,
		Status:        entities.TicketStatusGenerated,
		CreatedAt:     time.Now().UTC(),
	}
}

// renderAndLink performs the non-fatal tail of the pipeline and mutates
// stored with the outcome.
func (s *IssuanceService) renderAndLink(ctx context.Context, stored *repository.StoredTicket) {
	logger := s.logger.With().
		Str("charge_id", stored.ChargeID).
		Str("ticket_id", stored.TicketID).
		Logger()

	pdf, err := s.renderer.Render(ctx, render.Ticket{
		TicketID:      stored.TicketID,
		QRData:        qrpayload.Encode(stored.TicketID, stored.CustomerEmail),
		CustomerName:  stored.CustomerName,
		CustomerEmail: stored.CustomerEmail,
		TicketType:    stored.TicketType,
		Quantity:      stored.Quantity,
		Price:         stored.Price,
		Items: []entities.LineItem{
			{Description: stored.TicketType, Quantity: stored.Quantity, Amount: stored.Price},
		},
		GeneratedAt: time.Now(),
	})
	if err != nil {
		observability.TrackPDFFailure("render")
		logger.Error().Err(err).Msg("render failed, ticket kept without pdf")
		s.auditLog.Append(ctx, repository.LogEntry{
			Level: "ERROR", Module: "pdf", Action: "generate_ticket_pdf", Status: "error",
			ObjectType: "ticket", ObjectID: stored.TicketID, ErrorDetails: err.Error(),
		})
		return
	}

	result, err := s.publisher.Publish(ctx, fmt.Sprintf("ticket_%s.pdf", stored.TicketID), pdf)
	if err != nil {
		observability.TrackPDFFailure("publish")
		logger.Error().Err(err).Msg("pdf upload failed, ticket kept without pdf")
		s.auditLog.Append(ctx, repository.LogEntry{
			Level: "WARNING", Module: "pdf", Action: "publish_ticket_pdf", Status: "error",
			ObjectType: "ticket", ObjectID: stored.TicketID, ErrorDetails: err.Error(),
		})
		return
	}

	if err := s.tickets.SetPDF(ctx, stored.RecordID, result.URL, result.BytesUploaded, fmt.Sprintf("ticket_%s.pdf", stored.TicketID)); err != nil {
		observability.TrackPDFFailure("link")
		logger.Error().Err(err).Msg("pdf link update failed")
		return
	}

	stored.PDFURL = result.URL
	stored.PDFSizeBytes = result.BytesUploaded

	s.auditLog.Append(ctx, repository.LogEntry{
		Module: "pdf", Action: "generate_ticket_pdf", Status: "success",
		Message:    fmt.Sprintf("PDF size: %d bytes", result.BytesUploaded),
		ObjectType: "ticket", ObjectID: stored.TicketID,
	})
}
