package render_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsync/internal/entities"
	"ticketsync/internal/render"
)

func exampleTicket() render.Ticket {
	return render.Ticket{
		TicketID:      "7b4a2f9e-1111-2222-3333-444455556666",
		QRData:        "TICKET:7b4a2f9e-1111-2222-3333-444455556666:a@b.com",
		CustomerName:  "Maria Silva",
		CustomerEmail: "a@b.com",
		TicketType:    "Event Ticket",
		Quantity:      1,
		Price: entities.Money{
			Amount:   decimal.NewFromFloat(15.00),
			Currency: "EUR",
		},
		Items: []entities.LineItem{
			{
				Description: "Event Ticket",
				Quantity:    1,
				Amount:      entities.Money{Amount: decimal.NewFromFloat(15.00), Currency: "EUR"},
			},
		},
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	r := render.NewRenderer(zerolog.Nop(), "", "")

	pdf, err := r.Render(context.Background(), exampleTicket())
	require.NoError(t, err)

	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRender_MissingBackgroundFallsBack(t *testing.T) {
	r := render.NewRenderer(zerolog.Nop(), "testdata/does-not-exist.png", "")

	pdf, err := r.Render(context.Background(), exampleTicket())
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

func TestRender_MissingFontFallsBack(t *testing.T) {
	r := render.NewRenderer(zerolog.Nop(), "", "testdata/no-such-font.ttf")

	pdf, err := r.Render(context.Background(), exampleTicket())
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

func TestRender_CancelledContext(t *testing.T) {
	r := render.NewRenderer(zerolog.Nop(), "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, exampleTicket())
	assert.ErrorIs(t, err, render.ErrRender)
}

func TestRender_EmptyQRDataFails(t *testing.T) {
	r := render.NewRenderer(zerolog.Nop(), "", "")

	ticket := exampleTicket()
	ticket.QRData = ""

	_, err := r.Render(context.Background(), ticket)
	assert.ErrorIs(t, err, render.ErrRender)
}
