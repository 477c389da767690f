package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketsync/internal/entities"
)

// Audit handlers consume the internal lifecycle events and record them
// for operators (metrics plus the Logs table).

func (h *Handler) TicketIssuedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ticket_issued_audit_handler",
		func(ctx context.Context, event *entities.TicketIssued_v1) error {
			h.auditRecorder.RecordTicketIssued(ctx, *event)
			return nil
		},
	)
}

func (h *Handler) TicketValidatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ticket_validated_audit_handler",
		func(ctx context.Context, event *entities.TicketValidated_v1) error {
			h.auditRecorder.RecordTicketValidated(ctx, *event)
			return nil
		},
	)
}
