package app

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ticketsync/internal/application/services"
	"ticketsync/internal/config"
	"ticketsync/internal/infrastructure/clients"
	"ticketsync/internal/infrastructure/event_publisher"
	"ticketsync/internal/interfaces/events"
	"ticketsync/internal/interfaces/http"
	"ticketsync/internal/observability"
	"ticketsync/internal/repository"
)

type App struct {
	logger zerolog.Logger
	router *message.Router
	srv    *http.Server
	poller *services.Poller
}

func NewApp(
	cfg *config.Config,
	logger zerolog.Logger,
	watermillLogger watermill.LoggerAdapter,
	redisClient *redis.Client,
	airtableClient *clients.AirtableClient,
	stripeClient *clients.StripeClient,
	storageClient *clients.StorageClient,
	receiptsClient *clients.ReceiptsClient,
	renderer services.Renderer,
) (*App, error) {
	ticketsRepo := repository.NewTicketsRepo(airtableClient)
	recordsRepo := repository.NewRecordsRepo(airtableClient)
	logsRepo := repository.NewLogsRepo(airtableClient, logger)

	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	var publisher message.Publisher
	publisher, err = event_publisher.NewRedisPublisher(watermillLogger, redisClient)
	if err != nil {
		return nil, err
	}
	publisher = event_publisher.CorrelationPublisherDecorator{
		Publisher: publisher,
	}

	eventBus, err := events.NewEventBus(publisher, watermillLogger)
	if err != nil {
		return nil, err
	}

	syncService := services.NewSyncService(logger, recordsRepo, receiptsClient, logsRepo)
	issuanceService := services.NewIssuanceService(
		logger, ticketsRepo, renderer, storageClient, eventBus, logsRepo,
	)
	validationService := services.NewValidationService(
		logger, ticketsRepo, ticketsRepo, eventBus, logsRepo,
	)
	auditor := observability.NewAuditor(logsRepo, logger)

	srv := http.NewServer(
		echo.New(),
		":"+cfg.Port,
		validationService,
		issuanceService,
		ticketsRepo,
		stripeClient,
		eventBus,
		cfg.StripeWebhookSecret,
		router.IsRunning,
		logger,
	)

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware(logger))
	router.AddMiddleware(events.LoggingMiddleware)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	marshaler := cqrs.JSONMarshaler{
		GenerateName: cqrs.StructName,
	}
	processor, err := cqrs.NewEventProcessorWithConfig(
		router,
		events.NewEventProcessorConfig(redisClient, marshaler, watermillLogger),
	)
	if err != nil {
		return nil, err
	}

	handler := events.NewHandler(syncService, issuanceService, auditor)
	err = processor.AddHandlers(
		handler.MirrorChargeHandler(),
		handler.MirrorChargeUpdateHandler(),
		handler.IssueTicketHandler(),
		handler.MirrorCustomerHandler(),
		handler.MirrorCheckoutSessionHandler(),
		handler.MirrorPayoutHandler(),

		handler.TicketIssuedHandler(),
		handler.TicketValidatedHandler(),
	)
	if err != nil {
		return nil, err
	}

	var poller *services.Poller
	if cfg.PollEnabled {
		poller = services.NewPoller(logger, stripeClient, eventBus, redisClient, cfg.PollInterval)
	}

	return &App{
		logger: logger,
		router: router,
		srv:    srv,
		poller: poller,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Msg("starting router")
		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		a.logger.Info().Msg("router is running, starting http server")
		return a.srv.Start()
	})

	if a.poller != nil {
		g.Go(func() error {
			<-a.router.Running()
			a.logger.Info().Msg("starting reconciliation poller")
			return a.poller.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.srv.Stop(stopCtx); err != nil {
			a.logger.Err(err).Msg("error stopping http server")
			return err
		}
		return nil
	})

	return g.Wait()
}
