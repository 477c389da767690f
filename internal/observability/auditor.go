package observability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
	"ticketsync/internal/repository"
)

// Auditor consumes the internal lifecycle events and records them for
// operators: Prometheus counters plus a row in the Logs table.
type Auditor struct {
	logs   *repository.LogsRepo
	logger zerolog.Logger
}

func NewAuditor(logs *repository.LogsRepo, logger zerolog.Logger) *Auditor {
	return &Auditor{
		logs:   logs,
		logger: logger.With().Str("component", "auditor").Logger(),
	}
}

func (a *Auditor) RecordTicketIssued(ctx context.Context, event entities.TicketIssued_v1) {
	ticketsIssued.Inc()

	a.logger.Info().
		Str("ticket_id", event.TicketID).
		Str("charge_id", event.ChargeID).
		Str("pdf_url", event.PDFURL).
		Msg("ticket issued")

	a.logs.Append(ctx, repository.LogEntry{
		Level:      "INFO",
		Module:     "issuance",
		Action:     "ticket_issued",
		Status:     "success",
		Message:    fmt.Sprintf("ticket %s issued for charge %s", event.TicketID, event.ChargeID),
		ObjectType: "ticket",
		ObjectID:   event.TicketID,
	})
}

func (a *Auditor) RecordTicketValidated(ctx context.Context, event entities.TicketValidated_v1) {
	TrackValidation("confirmed")

	a.logger.Info().
		Str("ticket_id", event.TicketID).
		Str("validated_by", event.ValidatedBy).
		Time("validated_at", event.ValidatedAt).
		Msg("ticket validated")

	a.logs.Append(ctx, repository.LogEntry{
		Level:      "INFO",
		Module:     "picking",
		Action:     "ticket_validated",
		Status:     "success",
		Message:    fmt.Sprintf("ticket %s checked in by %s", event.TicketID, event.ValidatedBy),
		UserID:     event.ValidatedBy,
		ObjectType: "ticket",
		ObjectID:   event.TicketID,
	})
}
