package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const correlationIDMetadataKey = "correlation_id"

// CorrelationIDMiddleware makes sure every message carries a correlation
// id and attaches a scoped logger to the message context.
func CorrelationIDMiddleware(logger zerolog.Logger) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			correlationID := msg.Metadata.Get(correlationIDMetadataKey)
			if correlationID == "" {
				correlationID = uuid.NewString()
				msg.Metadata.Set(correlationIDMetadataKey, correlationID)
			}

			msgLogger := logger.With().
				Str("correlation_id", correlationID).
				Str("message_uuid", msg.UUID).
				Logger()

			msg.SetContext(msgLogger.WithContext(msg.Context()))

			return next(msg)
		}
	}
}

func LoggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := zerolog.Ctx(msg.Context())

		logger.Debug().
			Str("payload", string(msg.Payload)).
			Msg("handling a message")

		messages, err := next(msg)
		if err != nil {
			logger.Error().
				Err(err).
				Str("payload", string(msg.Payload)).
				Msg("message handling error")
		}

		return messages, err
	}
}
