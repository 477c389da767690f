package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ticketsync/internal/entities"
)

// ErrReceiptFetch wraps failures to retrieve or parse a hosted receipt
// page. Receipt capture is best-effort, callers log and move on.
var ErrReceiptFetch = errors.New("receipt fetch failed")

// Stripe renders receipt pages from a template; these patterns pick the
// structured bits out of the HTML.
var (
	receiptNumberRe = regexp.MustCompile(`Receipt\s*#([\d-]+)`)
	sellerRe        = regexp.MustCompile(`Receipt from\s+([^<\n]+)`)
	amountPaidRe    = regexp.MustCompile(`AMOUNT PAID[^€]*€([\d,\.]+)`)
	productLineRe   = regexp.MustCompile(`([^×<>\n]+?)\s*×\s*(\d+)[^€]*€([\d,\.]+)`)
)

const maxReceiptBody = 1 << 20

// ReceiptsClient fetches a Stripe-hosted receipt page and extracts the
// receipt number, seller, amount and line items for the Receipts table.
type ReceiptsClient struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewReceiptsClient(logger zerolog.Logger, timeout time.Duration) *ReceiptsClient {
	return &ReceiptsClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "receipts").Logger(),
	}
}

func (c *ReceiptsClient) FetchReceipt(ctx context.Context, receiptURL, chargeID string) (entities.Receipt, error) {
	if receiptURL == "" || chargeID == "" {
		return entities.Receipt{}, fmt.Errorf("%w: receipt url and charge id are required", ErrReceiptFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, receiptURL, nil)
	if err != nil {
		return entities.Receipt{}, fmt.Errorf("%w: %v", ErrReceiptFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entities.Receipt{}, fmt.Errorf("%w: %v", ErrReceiptFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.Receipt{}, fmt.Errorf("%w: HTTP %d for %s", ErrReceiptFetch, resp.StatusCode, receiptURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBody))
	if err != nil {
		return entities.Receipt{}, fmt.Errorf("%w: %v", ErrReceiptFetch, err)
	}
	html := string(body)

	receipt := entities.Receipt{
		ReceiptID:  receiptIDFromURL(receiptURL, chargeID),
		ChargeID:   chargeID,
		ReceiptURL: receiptURL,
		AmountPaid: entities.Money{Currency: detectCurrency(html)},
		Items:      extractItems(html),
		ScrapedAt:  time.Now().UTC(),
	}

	if m := receiptNumberRe.FindStringSubmatch(html); m != nil {
		receipt.ReceiptNumber = m[1]
	}
	if m := sellerRe.FindStringSubmatch(html); m != nil {
		receipt.SellerName = strings.TrimSpace(m[1])
	}
	if m := amountPaidRe.FindStringSubmatch(html); m != nil {
		if amount, err := parseReceiptAmount(m[1]); err == nil {
			receipt.AmountPaid.Amount = amount
		}
	}

	c.logger.Debug().
		Str("charge_id", chargeID).
		Str("receipt_number", receipt.ReceiptNumber).
		Int("items", len(receipt.Items)).
		Msg("receipt page parsed")

	return receipt, nil
}

// receiptIDFromURL uses the hosted page's token, falling back to the
// charge id for malformed URLs.
func receiptIDFromURL(receiptURL, chargeID string) string {
	if idx := strings.LastIndex(receiptURL, "/"); idx >= 0 && idx < len(receiptURL)-1 {
		return receiptURL[idx+1:]
	}
	return chargeID
}

func detectCurrency(html string) string {
	head := html
	if len(head) > 500 {
		head = head[:500]
	}
	if strings.Contains(html, "USD") || strings.Contains(head, "$") {
		return "USD"
	}
	return "EUR"
}

// parseReceiptAmount handles the localized decimal comma.
func parseReceiptAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
}

func extractItems(html string) []entities.LineItem {
	var items []entities.LineItem
	for _, m := range productLineRe.FindAllStringSubmatch(html, -1) {
		description := strings.TrimSpace(m[1])
		if isSummaryLine(description) {
			continue
		}

		quantity, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		price, err := parseReceiptAmount(m[3])
		if err != nil {
			price = decimal.Zero
		}

		items = append(items, entities.LineItem{
			Description: description,
			Quantity:    quantity,
			Amount:      entities.Money{Amount: price, Currency: detectCurrency(html)},
		})
	}
	return items
}

// isSummaryLine filters the totals block the product pattern also hits.
func isSummaryLine(description string) bool {
	lower := strings.ToLower(description)
	for _, marker := range []string{"subtotal", "total", "tax", "fee", "discount"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
