package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketsync/internal/entities"
)

func TestMoneyFromMinorUnits(t *testing.T) {
	m := entities.MoneyFromMinorUnits(1500, "eur")

	assert.Equal(t, "EUR", m.Currency)
	assert.Equal(t, "15.00", m.Amount.StringFixed(2))
	assert.Equal(t, 15.0, m.MajorUnits())
}

func TestMoneyDisplay(t *testing.T) {
	testCases := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{name: "simple", minor: 1500, currency: "EUR", want: "EUR 15.00"},
		{name: "grouping", minor: 123456789, currency: "usd", want: "USD 1,234,567.89"},
		{name: "sub unit", minor: 7, currency: "GBP", want: "GBP 0.07"},
		{name: "exact thousand", minor: 100000, currency: "EUR", want: "EUR 1,000.00"},
		{name: "negative", minor: -123456, currency: "EUR", want: "EUR -1,234.56"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := entities.MoneyFromMinorUnits(tc.minor, tc.currency)
			assert.Equal(t, tc.want, m.Display())
		})
	}
}

func TestMoneyDisplay_DefaultsCurrency(t *testing.T) {
	m := entities.Money{}
	assert.Equal(t, "EUR 0.00", m.Display())
}
