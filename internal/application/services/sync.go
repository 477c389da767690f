package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ticketsync/internal/entities"
	"ticketsync/internal/repository"
)

type RecordsRepository interface {
	UpsertCharge(ctx context.Context, c entities.Charge) error
	UpsertCustomer(ctx context.Context, c entities.Customer) error
	UpsertCheckoutSession(ctx context.Context, s entities.CheckoutSession) error
	UpsertPayout(ctx context.Context, p entities.Payout) error
	UpsertReceipt(ctx context.Context, r entities.Receipt) error
}

// ReceiptSource captures the hosted receipt page of a charge.
type ReceiptSource interface {
	FetchReceipt(ctx context.Context, receiptURL, chargeID string) (entities.Receipt, error)
}

// SyncService mirrors provider records into the spreadsheet backend.
// Everything here is an upsert on a provider id, repeat deliveries are
// absorbed by the store.
type SyncService struct {
	logger   zerolog.Logger
	records  RecordsRepository
	receipts ReceiptSource
	auditLog AuditLog
}

func NewSyncService(logger zerolog.Logger, records RecordsRepository, receipts ReceiptSource, auditLog AuditLog) *SyncService {
	return &SyncService{
		logger:   logger.With().Str("component", "sync").Logger(),
		records:  records,
		receipts: receipts,
		auditLog: auditLog,
	}
}

func (s *SyncService) SyncCharge(ctx context.Context, charge entities.Charge) error {
	if charge.ChargeID == "" {
		return fmt.Errorf("charge id is missing")
	}

	if err := s.records.UpsertCharge(ctx, charge); err != nil {
		s.audit(ctx, "Charge", charge.ChargeID, err)
		return err
	}

	s.logger.Info().Str("charge_id", charge.ChargeID).Str("status", charge.Status).Msg("charge mirrored")
	s.audit(ctx, "Charge", charge.ChargeID, nil)

	// The charge row is committed at this point; receipt capture is a
	// bonus that must never roll that back.
	s.captureReceipt(ctx, charge)
	return nil
}

func (s *SyncService) captureReceipt(ctx context.Context, charge entities.Charge) {
	if s.receipts == nil || charge.ReceiptURL == "" {
		return
	}

	receipt, err := s.receipts.FetchReceipt(ctx, charge.ReceiptURL, charge.ChargeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("charge_id", charge.ChargeID).Msg("receipt capture failed")
		s.auditReceipt(ctx, charge.ChargeID, err)
		return
	}

	if err := s.records.UpsertReceipt(ctx, receipt); err != nil {
		s.logger.Warn().Err(err).Str("charge_id", charge.ChargeID).Msg("receipt not persisted")
		s.auditReceipt(ctx, charge.ChargeID, err)
		return
	}

	s.logger.Info().
		Str("charge_id", charge.ChargeID).
		Str("receipt_number", receipt.ReceiptNumber).
		Int("items", len(receipt.Items)).
		Msg("receipt captured")
	s.auditReceipt(ctx, charge.ChargeID, nil)
}

func (s *SyncService) auditReceipt(ctx context.Context, chargeID string, err error) {
	entry := repository.LogEntry{
		Module: "sync", Action: "sync_Receipt", Status: "success",
		ObjectType: "Receipt", ObjectID: chargeID,
	}
	if err != nil {
		entry.Level = "WARNING"
		entry.Status = "warning"
		entry.ErrorDetails = err.Error()
	}
	s.auditLog.Append(ctx, entry)
}

func (s *SyncService) SyncCustomer(ctx context.Context, customer entities.Customer) error {
	if err := s.records.UpsertCustomer(ctx, customer); err != nil {
		s.audit(ctx, "Customer", customer.Key(), err)
		return err
	}

	s.logger.Info().Str("customer_id", customer.Key()).Msg("customer mirrored")
	s.audit(ctx, "Customer", customer.Key(), nil)
	return nil
}

func (s *SyncService) SyncCheckoutSession(ctx context.Context, session entities.CheckoutSession) error {
	if err := s.records.UpsertCheckoutSession(ctx, session); err != nil {
		s.audit(ctx, "CheckoutSession", session.SessionID, err)
		return err
	}

	s.logger.Info().Str("session_id", session.SessionID).Msg("checkout session mirrored")
	s.audit(ctx, "CheckoutSession", session.SessionID, nil)
	return nil
}

func (s *SyncService) SyncPayout(ctx context.Context, payout entities.Payout) error {
	if err := s.records.UpsertPayout(ctx, payout); err != nil {
		s.audit(ctx, "Payout", payout.PayoutID, err)
		return err
	}

	s.logger.Info().Str("payout_id", payout.PayoutID).Msg("payout mirrored")
	s.audit(ctx, "Payout", payout.PayoutID, nil)
	return nil
}

func (s *SyncService) audit(ctx context.Context, objectType, objectID string, err error) {
	entry := repository.LogEntry{
		Module: "sync", Action: "sync_" + objectType, Status: "success",
		ObjectType: objectType, ObjectID: objectID,
	}
	if err != nil {
		entry.Level = "ERROR"
		entry.Status = "error"
		entry.ErrorDetails = err.Error()
	}
	s.auditLog.Append(ctx, entry)
}
