package event_publisher

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const correlationIDMetadataKey = "correlation_id"

// CorrelationPublisherDecorator stamps outgoing messages with the
// correlation id already present in metadata, or mints one so consumers
// never see an empty id.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get(correlationIDMetadataKey) == "" {
			msg.Metadata.Set(correlationIDMetadataKey, uuid.NewString())
		}
	}
	return c.Publisher.Publish(topic, messages...)
}
