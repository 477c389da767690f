package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
	"ticketsync/internal/idempotency"
	"ticketsync/internal/qrpayload"
	"ticketsync/internal/repository"
)

type Outcome string

// The four terminal outcomes of a scan. Callers message each one
// differently: retry the scan, deny entry, or flag a replay.
const (
	OutcomeValid     Outcome = "valid"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeMalformed Outcome = "malformed"
)

type ValidationResult struct {
	Outcome Outcome          `json:"outcome"`
	Ticket  *entities.Ticket `json:"ticket,omitempty"`

	// Set on duplicate, for audit display at the gate.
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	ValidatedBy string     `json:"validated_by,omitempty"`
}

// ValidationService is the entry-control engine: a scan reports what the
// ticket is, a separate confirm commits generated → validated exactly
// once. The split models the operator reviewing the scan before waving
// the guest through.
type ValidationService struct {
	logger   zerolog.Logger
	tickets  TicketsRepository
	markRepo TicketMarker
	eventBus EventBus
	auditLog AuditLog
}

type TicketMarker interface {
	MarkValidated(ctx context.Context, ticketID, validatedBy string, at time.Time) error
}

func NewValidationService(
	logger zerolog.Logger,
	tickets TicketsRepository,
	markRepo TicketMarker,
	eventBus EventBus,
	auditLog AuditLog,
) *ValidationService {
	return &ValidationService{
		logger:   logger.With().Str("component", "validation").Logger(),
		tickets:  tickets,
		markRepo: markRepo,
		eventBus: eventBus,
		auditLog: auditLog,
	}
}

// Validate decodes a scanned payload and reports the outcome without
// mutating anything.
func (s *ValidationService) Validate(ctx context.Context, payload, validatedBy string) ValidationResult {
	decoded, err := qrpayload.Decode(payload)
	if err != nil {
		s.record(ctx, "unknown", payload, validatedBy, OutcomeMalformed)
		return ValidationResult{Outcome: OutcomeMalformed}
	}

	stored, err := s.tickets.FindByTicketID(ctx, decoded.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.record(ctx, decoded.TicketID, payload, validatedBy, OutcomeNotFound)
			return ValidationResult{Outcome: OutcomeNotFound}
		}
		// A store outage is indistinguishable from a missing ticket for
		// the gate operator; report not-found but log the real cause.
		s.logger.Error().Err(err).Str("ticket_id", decoded.TicketID).Msg("ticket lookup failed")
		return ValidationResult{Outcome: OutcomeNotFound}
	}

	if stored.Validated() {
		s.record(ctx, stored.TicketID, payload, validatedBy, OutcomeDuplicate)
		return ValidationResult{
			Outcome:     OutcomeDuplicate,
			Ticket:      &stored.Ticket,
			ValidatedAt: stored.ValidatedAt,
			ValidatedBy: stored.ValidatedBy,
		}
	}

	s.record(ctx, stored.TicketID, payload, validatedBy, OutcomeValid)
	return ValidationResult{Outcome: OutcomeValid, Ticket: &stored.Ticket}
}

// Confirm commits the transition. Safe to call twice, the second call is
// a no-op both here and in the repository's check-then-set.
func (s *ValidationService) Confirm(ctx context.Context, ticketID, validatedBy string) error {
	if validatedBy == "" {
		validatedBy = "system"
	}

	stored, err := s.tickets.FindByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if stored.Validated() {
		return nil
	}

	now := time.Now().UTC()
	if err := s.markRepo.MarkValidated(ctx, ticketID, validatedBy, now); err != nil {
		return fmt.Errorf("confirming ticket %s: %w", ticketID, err)
	}

	if err := s.eventBus.Publish(ctx, entities.TicketValidated_v1{
		Header:      entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx) + ticketID),
		TicketID:    ticketID,
		ValidatedBy: validatedBy,
		ValidatedAt: now,
	}); err != nil {
		s.logger.Error().Err(err).Str("ticket_id", ticketID).Msg("ticket validated event not published")
	}

	return nil
}

func (s *ValidationService) record(ctx context.Context, ticketID, payload, validatedBy string, outcome Outcome) {
	s.logger.Info().
		Str("ticket_id", ticketID).
		Str("payload", payload).
		Str("validated_by", validatedBy).
		Str("outcome", string(outcome)).
		Msg("scan validated")

	status := "success"
	level := "INFO"
	if outcome != OutcomeValid {
		status = string(outcome)
		level = "WARNING"
	}

	s.auditLog.Append(ctx, repository.LogEntry{
		Level: level, Module: "picking", Action: "validate_ticket", Status: status,
		Message: truncatePayload(payload), UserID: validatedBy,
		ObjectType: "ticket", ObjectID: ticketID,
	})
}

func truncatePayload(payload string) string {
	if len(payload) > 20 {
		return "QR code: " + payload[:20] + "..."
	}
	return "QR code: " + payload
}
