package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in major units (e.g. 15.00 EUR). Stripe delivers
// minor units; the conversion happens once, at the boundary.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func MoneyFromMinorUnits(amount int64, currency string) Money {
	return Money{
		Amount:   decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)),
		Currency: strings.ToUpper(currency),
	}
}

// Display renders the amount with grouped thousands, exactly two decimal
// places and an explicit currency code, e.g. "EUR 1,234.50".
func (m Money) Display() string {
	fixed := m.Amount.StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	grouped := b.String()
	if neg {
		grouped = "-" + grouped
	}

	currency := m.Currency
	if currency == "" {
		currency = "EUR"
	}

	return currency + " " + grouped + "." + fracPart
}

// MajorUnits returns the amount as a float for spreadsheet number fields.
func (m Money) MajorUnits() float64 {
	f, _ := m.Amount.Float64()
	return f
}
