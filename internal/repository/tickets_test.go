package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsync/internal/entities"
	"ticketsync/internal/infrastructure/clients"
)

type memoryStore struct {
	tables map[string][]clients.Record
	nextID int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tables: map[string][]clients.Record{}}
}

func (m *memoryStore) Upsert(ctx context.Context, table, mergeField string, fields map[string]any) (clients.Record, error) {
	for i, rec := range m.tables[table] {
		if rec.Fields[mergeField] == fields[mergeField] {
			for k, v := range fields {
				rec.Fields[k] = v
			}
			m.tables[table][i] = rec
			return rec, nil
		}
	}

	m.nextID++
	rec := clients.Record{
		ID:     fmt.Sprintf("rec%03d", m.nextID),
		Fields: fields,
	}
	m.tables[table] = append(m.tables[table], rec)
	return rec, nil
}

func (m *memoryStore) FindBy(ctx context.Context, table, field string, value any) (clients.Record, error) {
	for _, rec := range m.tables[table] {
		if rec.Fields[field] == value {
			return rec, nil
		}
	}
	return clients.Record{}, clients.ErrRecordNotFound
}

func (m *memoryStore) Update(ctx context.Context, table, recordID string, fields map[string]any) (clients.Record, error) {
	for i, rec := range m.tables[table] {
		if rec.ID == recordID {
			for k, v := range fields {
				rec.Fields[k] = v
			}
			m.tables[table][i] = rec
			return rec, nil
		}
	}
	return clients.Record{}, clients.ErrRecordNotFound
}

func (m *memoryStore) List(ctx context.Context, table string, fields ...string) ([]clients.Record, error) {
	return m.tables[table], nil
}

func exampleTicket(chargeID string) entities.Ticket {
	return entities.Ticket{
		TicketID:      "tic_" + chargeID,
		ChargeID:      chargeID,
		QRCodeID:      "qr_" + chargeID,
		CustomerName:  "Maria Silva",
		CustomerEmail: "maria@example.com",
		TicketType:    "Event Ticket",
		Quantity:      1,
		Price:         entities.MoneyFromMinorUnits(1500, "eur"),
		Status:        entities.TicketStatusGenerated,
		CreatedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertTicket_MergesOnChargeID(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewTicketsRepo(store)

	first, err := repo.UpsertTicket(ctx, exampleTicket("ch_1"))
	require.NoError(t, err)

	updated := exampleTicket("ch_1")
	updated.CustomerName = "M. Silva"
	second, err := repo.UpsertTicket(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Len(t, store.tables["Tickets"], 1)
	assert.Equal(t, "M. Silva", store.tables["Tickets"][0].Fields["customer_name"])
}

func TestFindByChargeID_NotFound(t *testing.T) {
	repo := NewTicketsRepo(newMemoryStore())

	_, err := repo.FindByChargeID(context.Background(), "ch_missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByChargeID_RoundTrips(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepo(newMemoryStore())

	_, err := repo.UpsertTicket(ctx, exampleTicket("ch_1"))
	require.NoError(t, err)

	stored, err := repo.FindByChargeID(ctx, "ch_1")
	require.NoError(t, err)

	assert.Equal(t, "tic_ch_1", stored.TicketID)
	assert.Equal(t, "qr_ch_1", stored.QRCodeID)
	assert.Equal(t, "EUR 15.00", stored.Price.Display())
	assert.Equal(t, entities.TicketStatusGenerated, stored.Status)
	require.NotNil(t, stored.CreatedAt)
}

func TestSetPDF_WritesAttachment(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewTicketsRepo(store)

	stored, err := repo.UpsertTicket(ctx, exampleTicket("ch_1"))
	require.NoError(t, err)

	err = repo.SetPDF(ctx, stored.RecordID, "https://cdn.example.com/t.pdf", 2048, "t.pdf")
	require.NoError(t, err)

	fields := store.tables["Tickets"][0].Fields
	assert.Equal(t, "https://cdn.example.com/t.pdf", fields["pdf_url"])
	assert.Equal(t, 2048, fields["pdf_size_bytes"])

	attachments, ok := fields["pdf"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, "t.pdf", attachments[0]["filename"])
}

func TestMarkValidated_SecondCallKeepsFirstValidator(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewTicketsRepo(store)

	_, err := repo.UpsertTicket(ctx, exampleTicket("ch_1"))
	require.NoError(t, err)

	first := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkValidated(ctx, "tic_ch_1", "gate-1", first))
	require.NoError(t, repo.MarkValidated(ctx, "tic_ch_1", "gate-2", first.Add(time.Hour)))

	fields := store.tables["Tickets"][0].Fields
	assert.Equal(t, entities.TicketStatusValidated, fields["status"])
	assert.Equal(t, "gate-1", fields["validated_by"])
	assert.Equal(t, first.Format(time.RFC3339), fields["validated_at"])
}

func TestMarkValidated_UnknownTicket(t *testing.T) {
	repo := NewTicketsRepo(newMemoryStore())

	err := repo.MarkValidated(context.Background(), "tic_unknown", "gate-1", time.Now())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats_CountsByStatusAndMissingPDF(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewTicketsRepo(store)

	for _, chargeID := range []string{"ch_1", "ch_2", "ch_3"} {
		_, err := repo.UpsertTicket(ctx, exampleTicket(chargeID))
		require.NoError(t, err)
	}

	stored, err := repo.FindByChargeID(ctx, "ch_1")
	require.NoError(t, err)
	require.NoError(t, repo.SetPDF(ctx, stored.RecordID, "https://cdn.example.com/t1.pdf", 1024, "t1.pdf"))
	require.NoError(t, repo.MarkValidated(ctx, "tic_ch_2", "gate-1", time.Now()))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Generated)
	assert.Equal(t, 1, stats.Validated)
	assert.Equal(t, 2, stats.MissingPDF)
}

func TestUpsertCharge_UsesChargeIDMerge(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewRecordsRepo(store)

	charge := entities.Charge{
		ChargeID: "ch_1",
		Status:   "succeeded",
		Amount:   entities.MoneyFromMinorUnits(1500, "eur"),
	}
	require.NoError(t, repo.UpsertCharge(ctx, charge))

	charge.Status = "refunded"
	require.NoError(t, repo.UpsertCharge(ctx, charge))

	require.Len(t, store.tables["Charges"], 1)
	assert.Equal(t, "refunded", store.tables["Charges"][0].Fields["status"])
}

func TestUpsertReceipt_StringifiesItemsAndMergesOnChargeID(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	repo := NewRecordsRepo(store)

	receipt := entities.Receipt{
		ReceiptID:     "tok_abc",
		ChargeID:      "ch_1",
		ReceiptURL:    "https://pay.stripe.com/receipts/payment/tok_abc",
		ReceiptNumber: "2077-4821",
		SellerName:    "Event Org",
		AmountPaid:    entities.MoneyFromMinorUnits(1500, "eur"),
		Items: []entities.LineItem{
			{Description: "General Admission", Quantity: 1, Amount: entities.MoneyFromMinorUnits(1500, "eur")},
		},
		ScrapedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertReceipt(ctx, receipt))

	receipt.ReceiptNumber = "2077-4822"
	require.NoError(t, repo.UpsertReceipt(ctx, receipt))

	require.Len(t, store.tables["Receipts"], 1)
	fields := store.tables["Receipts"][0].Fields
	assert.Equal(t, "2077-4822", fields["receipt_number"])
	assert.Equal(t, 1, fields["items_count"])

	items, ok := fields["product_items"].(string)
	require.True(t, ok)
	assert.Contains(t, items, "General Admission")
}

func TestUpsertCustomer_RequiresIdentity(t *testing.T) {
	repo := NewRecordsRepo(newMemoryStore())

	err := repo.UpsertCustomer(context.Background(), entities.Customer{Name: "No Identity"})

	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
