package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsync/internal/application/services"
	"ticketsync/internal/entities"
	"ticketsync/internal/infrastructure/clients"
	"ticketsync/internal/render"
	"ticketsync/internal/repository"
)

// fakeTicketsRepo is an in-memory stand-in for the Airtable-backed
// repository, keyed the same way: one row per charge_id.
type fakeTicketsRepo struct {
	mu               sync.Mutex
	byCharge         map[string]*repository.StoredTicket
	qrCodes          map[string]entities.QRCode
	failTicketUpsert bool
}

func newFakeTicketsRepo() *fakeTicketsRepo {
	return &fakeTicketsRepo{
		byCharge: map[string]*repository.StoredTicket{},
		qrCodes:  map[string]entities.QRCode{},
	}
}

func (f *fakeTicketsRepo) FindByChargeID(_ context.Context, chargeID string) (repository.StoredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byCharge[chargeID]; ok {
		return *t, nil
	}
	return repository.StoredTicket{}, repository.ErrNotFound
}

func (f *fakeTicketsRepo) FindByTicketID(_ context.Context, ticketID string) (repository.StoredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byCharge {
		if t.TicketID == ticketID {
			return *t, nil
		}
	}
	return repository.StoredTicket{}, repository.ErrNotFound
}

func (f *fakeTicketsRepo) UpsertTicket(_ context.Context, t entities.Ticket) (repository.StoredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTicketUpsert {
		return repository.StoredTicket{}, fmt.Errorf("%w: store unreachable", clients.ErrStore)
	}

	stored, ok := f.byCharge[t.ChargeID]
	if !ok {
		stored = &repository.StoredTicket{RecordID: "rec" + t.ChargeID}
		f.byCharge[t.ChargeID] = stored
	}
	stored.Ticket = t
	return *stored, nil
}

func (f *fakeTicketsRepo) UpsertQRCode(_ context.Context, qr entities.QRCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qrCodes[qr.QRCodeID] = qr
	return nil
}

func (f *fakeTicketsRepo) SetPDF(_ context.Context, recordID, pdfURL string, sizeBytes int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byCharge {
		if t.RecordID == recordID {
			t.PDFURL = pdfURL
			t.PDFSizeBytes = sizeBytes
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeTicketsRepo) TicketsMissingPDF(context.Context) ([]repository.StoredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var missing []repository.StoredTicket
	for _, t := range f.byCharge {
		if t.PDFURL == "" {
			missing = append(missing, *t)
		}
	}
	return missing, nil
}

func (f *fakeTicketsRepo) MarkValidated(_ context.Context, ticketID, validatedBy string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byCharge {
		if t.TicketID == ticketID {
			if t.Status == entities.TicketStatusValidated {
				return nil
			}
			t.Status = entities.TicketStatusValidated
			t.ValidatedAt = &at
			t.ValidatedBy = validatedBy
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRenderer struct {
	fail    bool
	renders int
}

func (f *fakeRenderer) Render(context.Context, render.Ticket) ([]byte, error) {
	f.renders++
	if f.fail {
		return nil, render.ErrRender
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakePublisher struct {
	fail     bool
	uploads  int
	lastName string
}

func (f *fakePublisher) Publish(_ context.Context, name string, content []byte) (clients.PublishResult, error) {
	f.uploads++
	f.lastName = name
	if f.fail {
		return clients.PublishResult{}, clients.ErrPublish
	}
	return clients.PublishResult{
		URL:           "https://storage.example.com/" + name,
		BytesUploaded: len(content),
	}, nil
}

type fakeEventBus struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeEventBus) Publish(_ context.Context, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type nopAuditLog struct{}

func (nopAuditLog) Append(context.Context, repository.LogEntry) {}

func exampleCharge() entities.Charge {
	return entities.Charge{
		ChargeID:      "ch_001",
		Status:        "succeeded",
		Amount:        entities.MoneyFromMinorUnits(1500, "eur"),
		BillingName:   "Maria Silva",
		CustomerEmail: "a@b.com",
		Description:   "Event Ticket",
	}
}

type issuanceFixture struct {
	repo      *fakeTicketsRepo
	renderer  *fakeRenderer
	publisher *fakePublisher
	bus       *fakeEventBus
	service   *services.IssuanceService
}

func newIssuanceFixture() *issuanceFixture {
	f := &issuanceFixture{
		repo:      newFakeTicketsRepo(),
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
		bus:       &fakeEventBus{},
	}
	f.service = services.NewIssuanceService(
		zerolog.Nop(), f.repo, f.renderer, f.publisher, f.bus, nopAuditLog{},
	)
	return f
}

func TestIssue_HappyPath(t *testing.T) {
	f := newIssuanceFixture()

	ticket, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.TicketID)
	assert.NotEmpty(t, ticket.QRCodeID)
	assert.Equal(t, "ch_001", ticket.ChargeID)
	assert.Equal(t, entities.TicketStatusGenerated, ticket.Status)
	assert.Equal(t, "15.00", ticket.Price.Amount.StringFixed(2))
	assert.Equal(t, "EUR", ticket.Price.Currency)

	stored, err := f.repo.FindByChargeID(context.Background(), "ch_001")
	require.NoError(t, err)
	assert.Contains(t, stored.PDFURL, "ticket_"+ticket.TicketID+".pdf")
	assert.Positive(t, stored.PDFSizeBytes)

	qr, ok := f.repo.qrCodes[ticket.QRCodeID]
	require.True(t, ok, "qr code record must be created with the ticket")
	assert.Equal(t, "TICKET:"+ticket.TicketID+":a@b.com", qr.Data)

	require.Len(t, f.bus.events, 1)
	issued, ok := f.bus.events[0].(entities.TicketIssued_v1)
	require.True(t, ok)
	assert.Equal(t, ticket.TicketID, issued.TicketID)
}

func TestIssue_Idempotent(t *testing.T) {
	f := newIssuanceFixture()

	first, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	second, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Equal(t, first.QRCodeID, second.QRCodeID)
	assert.Len(t, f.repo.byCharge, 1, "same charge must never produce two tickets")
	assert.Equal(t, 1, f.renderer.renders, "a complete ticket is not re-rendered by Issue")
}

func TestIssue_PartialFailure_UploadDown(t *testing.T) {
	f := newIssuanceFixture()
	f.publisher.fail = true

	ticket, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err, "upload failure must not fail issuance")

	stored, err := f.repo.FindByChargeID(context.Background(), "ch_001")
	require.NoError(t, err)
	assert.Empty(t, stored.PDFURL)
	assert.Zero(t, stored.PDFSizeBytes)
	assert.Equal(t, entities.TicketStatusGenerated, stored.Status)
	assert.Equal(t, ticket.TicketID, stored.TicketID)
}

func TestIssue_PartialFailure_RenderDown(t *testing.T) {
	f := newIssuanceFixture()
	f.renderer.fail = true

	_, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err, "render failure must not fail issuance")

	stored, err := f.repo.FindByChargeID(context.Background(), "ch_001")
	require.NoError(t, err)
	assert.Empty(t, stored.PDFURL)
	assert.Zero(t, f.publisher.uploads, "nothing to upload when render failed")
}

func TestIssue_RetryFillsMissingPDF(t *testing.T) {
	f := newIssuanceFixture()
	f.publisher.fail = true

	first, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	f.publisher.fail = false

	second, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	assert.Equal(t, first.TicketID, second.TicketID, "retry reuses the existing identifiers")

	stored, err := f.repo.FindByChargeID(context.Background(), "ch_001")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PDFURL, "retry must fill the missing document")
}

func TestIssue_TicketPersistFailureIsFatal(t *testing.T) {
	f := newIssuanceFixture()
	f.repo.failTicketUpsert = true

	_, err := f.service.Issue(context.Background(), exampleCharge())
	assert.ErrorIs(t, err, clients.ErrStore)
}

func TestRegenerate_AlwaysReRenders(t *testing.T) {
	f := newIssuanceFixture()

	first, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)
	require.Equal(t, 1, f.renderer.renders)

	second, err := f.service.Regenerate(context.Background(), exampleCharge())
	require.NoError(t, err)

	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Equal(t, 2, f.renderer.renders)
	assert.Equal(t, 2, f.publisher.uploads)
}

func TestFillGaps_RetriesOnlyTicketsWithoutPDF(t *testing.T) {
	f := newIssuanceFixture()

	// First charge gets its PDF, second fails at render time.
	_, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	f.renderer.fail = true
	second := exampleCharge()
	second.ChargeID = "ch_002"
	_, err = f.service.Issue(context.Background(), second)
	require.NoError(t, err)

	f.renderer.fail = false
	rendersBefore := f.renderer.renders

	filled, err := f.service.FillGaps(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, filled)
	assert.Equal(t, rendersBefore+1, f.renderer.renders)

	stored, err := f.repo.FindByChargeID(context.Background(), "ch_002")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PDFURL)
}

func TestFillGaps_NothingMissingIsANoOp(t *testing.T) {
	f := newIssuanceFixture()

	_, err := f.service.Issue(context.Background(), exampleCharge())
	require.NoError(t, err)

	filled, err := f.service.FillGaps(context.Background())
	require.NoError(t, err)

	assert.Zero(t, filled)
	assert.Equal(t, 1, f.renderer.renders)
}

func TestIssue_NoEmailUsesPlaceholderPayload(t *testing.T) {
	f := newIssuanceFixture()

	charge := exampleCharge()
	charge.CustomerEmail = ""
	charge.BillingName = ""

	ticket, err := f.service.Issue(context.Background(), charge)
	require.NoError(t, err)

	assert.Equal(t, "Guest", ticket.CustomerName)

	qr := f.repo.qrCodes[ticket.QRCodeID]
	assert.Equal(t, "TICKET:"+ticket.TicketID+":N/A", qr.Data)
}

func TestIssue_MissingChargeID(t *testing.T) {
	f := newIssuanceFixture()

	_, err := f.service.Issue(context.Background(), entities.Charge{})
	assert.Error(t, err)
}

func TestIssue_LookupFailureIsFatal(t *testing.T) {
	f := newIssuanceFixture()
	f.service = services.NewIssuanceService(
		zerolog.Nop(),
		&lookupFailingRepo{fakeTicketsRepo: f.repo},
		f.renderer, f.publisher, f.bus, nopAuditLog{},
	)

	_, err := f.service.Issue(context.Background(), exampleCharge())
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

type lookupFailingRepo struct {
	*fakeTicketsRepo
}

func (r *lookupFailingRepo) FindByChargeID(context.Context, string) (repository.StoredTicket, error) {
	return repository.StoredTicket{}, errors.New("store timeout")
}
