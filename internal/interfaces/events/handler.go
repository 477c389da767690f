package events

import (
	"context"

	"ticketsync/internal/entities"
)

type SyncService interface {
	SyncCharge(ctx context.Context, charge entities.Charge) error
	SyncCustomer(ctx context.Context, customer entities.Customer) error
	SyncCheckoutSession(ctx context.Context, session entities.CheckoutSession) error
	SyncPayout(ctx context.Context, payout entities.Payout) error
}

type IssuanceService interface {
	Issue(ctx context.Context, charge entities.Charge) (entities.Ticket, error)
}

type AuditRecorder interface {
	RecordTicketIssued(ctx context.Context, event entities.TicketIssued_v1)
	RecordTicketValidated(ctx context.Context, event entities.TicketValidated_v1)
}

// Handler bundles the event handlers and their dependencies, one struct
// so the router wiring stays flat.
type Handler struct {
	syncService     SyncService
	issuanceService IssuanceService
	auditRecorder   AuditRecorder
}

func NewHandler(
	syncService SyncService,
	issuanceService IssuanceService,
	auditRecorder AuditRecorder,
) *Handler {
	return &Handler{
		syncService:     syncService,
		issuanceService: issuanceService,
		auditRecorder:   auditRecorder,
	}
}
