// Package render composes the printable ticket: background art, QR code
// and the purchase details, serialized as a single-page PDF.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"ticketsync/internal/entities"
)

// ErrRender marks unrecoverable composition failures. Missing optional
// assets (background, preferred font) are not render errors.
var ErrRender = errors.New("ticket render failed")

const (
	pageWidth  = 612 // letter, points
	pageHeight = 792

	qrSize   = 144
	qrMargin = 20

	maxItems        = 5
	maxItemDescLen  = 40
	ticketIDDisplay = 12
)

type Ticket struct {
	TicketID      string
	QRData        string
	CustomerName  string
	CustomerEmail string
	TicketType    string
	Quantity      int
	Price         entities.Money
	Items         []entities.LineItem
	GeneratedAt   time.Time
}

type Renderer struct {
	logger         zerolog.Logger
	backgroundPath string
	fontPath       string
}

func NewRenderer(logger zerolog.Logger, backgroundPath, fontPath string) *Renderer {
	return &Renderer{
		logger:         logger.With().Str("component", "renderer").Logger(),
		backgroundPath: backgroundPath,
		fontPath:       fontPath,
	}
}

// Render returns the PDF bytes. It only fails when the document itself
// cannot be produced; asset fallbacks are handled internally. The
// context covers the asset reads, a cancelled caller stops before any
// composition work.
func (r *Renderer) Render(ctx context.Context, ticket Ticket) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	fontFamily := r.setupFont(pdf)

	r.drawBackground(pdf)
	if err := r.drawQRCode(pdf, ticket.QRData); err != nil {
		return nil, err
	}
	r.drawDetails(pdf, fontFamily, ticket)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	return buf.Bytes(), nil
}

// setupFont registers the preferred TTF when present and falls back to
// the built-in Helvetica otherwise.
func (r *Renderer) setupFont(pdf *fpdf.Fpdf) string {
	if r.fontPath == "" {
		return "Helvetica"
	}
	if _, err := os.Stat(r.fontPath); err != nil {
		r.logger.Warn().Err(err).Str("font", r.fontPath).Msg("preferred font unavailable, using default")
		return "Helvetica"
	}

	pdf.AddUTF8Font("ticket", "", r.fontPath)
	if pdf.Err() {
		r.logger.Warn().Str("font", r.fontPath).Msg("font registration failed, using default")
		pdf.ClearError()
		return "Helvetica"
	}

	return "ticket"
}

func (r *Renderer) drawBackground(pdf *fpdf.Fpdf) {
	if r.backgroundPath == "" {
		return
	}

	bg, err := os.ReadFile(r.backgroundPath)
	if err != nil {
		// Blank canvas fallback, issuance must not depend on art assets.
		r.logger.Warn().Err(err).Str("background", r.backgroundPath).Msg("background unavailable, rendering on blank page")
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("background", opts, bytes.NewReader(bg))
	if pdf.Err() {
		r.logger.Warn().Str("background", r.backgroundPath).Msg("background not decodable, rendering on blank page")
		pdf.ClearError()
		return
	}

	pdf.ImageOptions("background", 0, 0, pageWidth, pageHeight, false, opts, 0, "")
}

func (r *Renderer) drawQRCode(pdf *fpdf.Fpdf, data string) error {
	// Highest error correction so the code stays scannable on print.
	png, err := qrcode.Encode(data, qrcode.Highest, 512)
	if err != nil {
		return fmt.Errorf("%w: encoding qr image: %v", ErrRender, err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	if pdf.Err() {
		return fmt.Errorf("%w: embedding qr image: %v", ErrRender, pdf.Error())
	}

	pdf.ImageOptions("qr", pageWidth-qrSize-qrMargin, qrMargin, qrSize, qrSize, false, opts, 0, "")
	return nil
}

func (r *Renderer) drawDetails(pdf *fpdf.Fpdf, font string, ticket Ticket) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Semi-transparent white box behind the text block, same trick the
	// background art relies on.
	pdf.SetAlpha(0.86, "Normal")
	pdf.SetFillColor(255, 255, 255)
	pdf.Rect(76, 190, 460, 250, "F")
	pdf.SetAlpha(1.0, "Normal")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetY(200)

	pdf.SetFont(font, "", 24)
	centered(pdf, 34, tr(fmt.Sprintf("Ticket: %s...", truncate(ticket.TicketID, ticketIDDisplay))))

	pdf.SetFont(font, "", 15)
	centered(pdf, 26, tr("Name: "+ticket.CustomerName))

	pdf.SetFont(font, "", 12)
	centered(pdf, 22, tr("Email: "+ticket.CustomerEmail))

	pdf.SetFont(font, "", 15)
	centered(pdf, 24, tr("Type: "+ticket.TicketType))
	centered(pdf, 24, tr(fmt.Sprintf("Quantity: %d", ticket.Quantity)))

	pdf.SetTextColor(204, 0, 0)
	pdf.SetFont(font, "B", 20)
	centered(pdf, 34, tr("Price: "+ticket.Price.Display()))
	pdf.SetTextColor(0, 0, 0)

	if len(ticket.Items) > 0 {
		pdf.SetY(460)
		pdf.SetFont(font, "", 15)
		centered(pdf, 26, "Items:")

		pdf.SetFont(font, "", 12)
		for i, item := range ticket.Items {
			if i == maxItems {
				break
			}
			line := fmt.Sprintf("- %s x%d (%s)",
				truncate(item.Description, maxItemDescLen), item.Quantity, item.Amount.Display())
			centered(pdf, 22, tr(line))
		}
	}

	generatedAt := ticket.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	pdf.SetY(pageHeight - 50)
	pdf.SetFont(font, "", 10)
	centered(pdf, 16, "Generated: "+generatedAt.Format("02/01/2006 15:04"))
}

func centered(pdf *fpdf.Fpdf, height float64, text string) {
	pdf.CellFormat(0, height, text, "", 1, "C", false, 0, "")
}

// truncate cuts on runes so a multibyte name at the boundary is never
// split mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
