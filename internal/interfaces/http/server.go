package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ticketsync/internal/application/services"
	"ticketsync/internal/entities"
	"ticketsync/internal/repository"
)

type ValidationService interface {
	Validate(ctx context.Context, payload, validatedBy string) services.ValidationResult
	Confirm(ctx context.Context, ticketID, validatedBy string) error
}

type IssuanceService interface {
	Issue(ctx context.Context, charge entities.Charge) (entities.Ticket, error)
	RegenerateStored(ctx context.Context, ticketID string) (entities.Ticket, error)
	FillGaps(ctx context.Context) (int, error)
}

type TicketsReader interface {
	FindByTicketID(ctx context.Context, ticketID string) (repository.StoredTicket, error)
	Stats(ctx context.Context) (repository.TicketStats, error)
}

type ChargeGetter interface {
	GetCharge(ctx context.Context, chargeID string) (entities.Charge, error)
}

type EventBus interface {
	Publish(ctx context.Context, event any) error
}

type Server struct {
	e    *echo.Echo
	addr string

	validationService ValidationService
	issuanceService   IssuanceService
	tickets           TicketsReader
	charges           ChargeGetter
	eventBus          EventBus

	webhookSecret string
	logger        zerolog.Logger
}

func NewServer(
	e *echo.Echo,
	addr string,
	validationService ValidationService,
	issuanceService IssuanceService,
	tickets TicketsReader,
	charges ChargeGetter,
	eventBus EventBus,
	webhookSecret string,
	routerIsRunning func() bool,
	logger zerolog.Logger,
) *Server {
	srv := &Server{
		e:                 e,
		addr:              addr,
		validationService: validationService,
		issuanceService:   issuanceService,
		tickets:           tickets,
		charges:           charges,
		eventBus:          eventBus,
		webhookSecret:     webhookSecret,
		logger:            logger.With().Str("component", "http").Logger(),
	}

	e.POST("/webhook", srv.WebhookHandler)

	e.POST("/scans", srv.ScanHandler)
	e.POST("/scans/confirm", srv.ConfirmScanHandler)

	e.GET("/tickets/:ticket_id", srv.GetTicketHandler)
	e.POST("/tickets/:ticket_id/regenerate", srv.RegenerateTicketHandler)
	e.POST("/charges/:charge_id/ticket", srv.IssueForChargeHandler)
	e.POST("/tickets/backfill", srv.BackfillTicketsHandler)

	e.GET("/stats", srv.StatsHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				srv.logger.Error().
					Err(err).
					Str("path", c.Request().URL.Path).
					Msg("request handling error")
				return err
			}

			srv.logger.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Msg("handled request")
			return nil
		}
	})

	return srv
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
