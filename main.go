package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ticketsync/internal/app"
	"ticketsync/internal/config"
	"ticketsync/internal/infrastructure/clients"
	"ticketsync/internal/render"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	airtableClient := clients.NewAirtableClient(logger, cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTimeout)
	stripeClient := clients.NewStripeClient(cfg.StripeAPIKey)

	storageClient, err := clients.NewStorageClient(ctx, logger, clients.StorageConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
		Timeout:         cfg.S3Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot initialize object storage client")
	}

	receiptsClient := clients.NewReceiptsClient(logger, cfg.ReceiptFetchTimeout)

	renderer := render.NewRenderer(logger, cfg.TicketBackgroundPath, cfg.TicketFontPath)

	watermillLogger := watermill.NewStdLogger(false, false)

	a, err := app.NewApp(
		cfg,
		logger,
		watermillLogger,
		redisClient,
		airtableClient,
		stripeClient,
		storageClient,
		receiptsClient,
		renderer,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot initialize application")
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("application stopped with error")
	}
}
