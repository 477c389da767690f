package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrPublish marks attachment upload failures. Issuance treats them as
// non-fatal: the ticket record stays, pdf_url stays empty.
var ErrPublish = errors.New("attachment publish failed")

type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	Timeout         time.Duration
}

// StorageClient publishes rendered documents to S3-compatible object
// storage and hands back a stable retrieval URL. Each call is
// self-contained, nothing is cached between uploads.
type StorageClient struct {
	s3Client *s3.Client
	logger   zerolog.Logger
	cfg      StorageConfig
}

func NewStorageClient(ctx context.Context, logger zerolog.Logger, cfg StorageConfig) (*StorageClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Non-AWS endpoints (MinIO, B2) need path-style URLs.
			o.UsePathStyle = true
		}
	})

	return &StorageClient{
		s3Client: s3Client,
		logger:   logger.With().Str("component", "storage").Logger(),
		cfg:      cfg,
	}, nil
}

type PublishResult struct {
	URL           string
	BytesUploaded int
}

// Publish uploads content under name and returns its public URL.
func (c *StorageClient) Publish(ctx context.Context, name string, content []byte) (PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return PublishResult{}, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	c.logger.Info().Str("object", name).Int("bytes", len(content)).Msg("attachment published")

	return PublishResult{
		URL:           c.objectURL(name),
		BytesUploaded: len(content),
	}, nil
}

func (c *StorageClient) objectURL(name string) string {
	if c.cfg.PublicBaseURL != "" {
		return strings.TrimRight(c.cfg.PublicBaseURL, "/") + "/" + name
	}
	if c.cfg.Endpoint != "" {
		return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + c.cfg.Bucket + "/" + name
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.Region, name)
}
