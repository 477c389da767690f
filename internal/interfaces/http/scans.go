package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ticketsync/internal/observability"
)

type ScanRequest struct {
	Payload   string `json:"payload"`
	ScannedBy string `json:"scanned_by"`
}

// ScanHandler reports what a scanned QR code refers to without changing
// anything. The gate operator confirms check-in with a second call.
func (s *Server) ScanHandler(c echo.Context) error {
	var request ScanRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Payload == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload is required"})
	}

	result := s.validationService.Validate(c.Request().Context(), request.Payload, request.ScannedBy)
	observability.TrackValidation(string(result.Outcome))

	return c.JSON(http.StatusOK, result)
}

type ConfirmScanRequest struct {
	TicketID    string `json:"ticket_id"`
	ValidatedBy string `json:"validated_by"`
}

func (s *Server) ConfirmScanHandler(c echo.Context) error {
	var request ConfirmScanRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.TicketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id is required"})
	}

	err := s.validationService.Confirm(c.Request().Context(), request.TicketID, request.ValidatedBy)
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}
