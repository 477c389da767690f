package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ticketsync/internal/entities"
	"ticketsync/internal/repository"
)

type TicketResponse struct {
	TicketID      string     `json:"ticket_id"`
	ChargeID      string     `json:"charge_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	TicketType    string     `json:"ticket_type"`
	Quantity      int        `json:"quantity"`
	Price         string     `json:"price"`
	Status        string     `json:"status"`
	PDFURL        string     `json:"pdf_url,omitempty"`
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`
	ValidatedBy   string     `json:"validated_by,omitempty"`
}

func ticketResponse(t entities.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:      t.TicketID,
		ChargeID:      t.ChargeID,
		CustomerName:  t.CustomerName,
		CustomerEmail: t.CustomerEmail,
		TicketType:    t.TicketType,
		Quantity:      t.Quantity,
		Price:         t.Price.Display(),
		Status:        t.Status,
		PDFURL:        t.PDFURL,
		ValidatedAt:   t.ValidatedAt,
		ValidatedBy:   t.ValidatedBy,
	}
}

func (s *Server) GetTicketHandler(c echo.Context) error {
	ticketID := c.Param("ticket_id")

	stored, err := s.tickets.FindByTicketID(c.Request().Context(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return err
	}

	return c.JSON(http.StatusOK, ticketResponse(stored.Ticket))
}

// RegenerateTicketHandler re-renders and republishes the PDF for an
// existing ticket, keeping its ticket and QR code ids stable.
func (s *Server) RegenerateTicketHandler(c echo.Context) error {
	ticketID := c.Param("ticket_id")

	ticket, err := s.issuanceService.RegenerateStored(c.Request().Context(), ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return err
	}

	return c.JSON(http.StatusOK, ticketResponse(ticket))
}

// IssueForChargeHandler backfills a ticket for a charge the webhook
// missed: it fetches the charge from Stripe and runs normal issuance.
func (s *Server) IssueForChargeHandler(c echo.Context) error {
	chargeID := c.Param("charge_id")

	charge, err := s.charges.GetCharge(c.Request().Context(), chargeID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "cannot fetch charge"})
	}
	if !charge.Succeeded() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "charge has not succeeded"})
	}

	ticket, err := s.issuanceService.Issue(c.Request().Context(), charge)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, ticketResponse(ticket))
}

// BackfillTicketsHandler re-runs the document tail for every ticket
// still missing its PDF.
func (s *Server) BackfillTicketsHandler(c echo.Context) error {
	filled, err := s.issuanceService.FillGaps(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"filled": filled})
}

func (s *Server) StatsHandler(c echo.Context) error {
	stats, err := s.tickets.Stats(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
