package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsync/internal/entities"
	"ticketsync/internal/interfaces/events"
)

func TestEventBus_RoutesExternalAndInternalTopics(t *testing.T) {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubsub.Close()

	bus, err := events.NewEventBus(pubsub, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	external, err := pubsub.Subscribe(ctx, "events.ChargeCaptured_v1")
	require.NoError(t, err)
	internal, err := pubsub.Subscribe(ctx, "internal-events.svc-ticketsync.TicketIssued_v1")
	require.NoError(t, err)

	err = bus.Publish(ctx, entities.ChargeCaptured_v1{
		Header: entities.NewEventHeaderWithIdempotencyKey("evt_1"),
		Charge: entities.Charge{ChargeID: "ch_1", Status: "succeeded"},
	})
	require.NoError(t, err)

	err = bus.Publish(ctx, entities.TicketIssued_v1{
		Header:   entities.NewEventHeader(),
		TicketID: "tic_1",
		ChargeID: "ch_1",
	})
	require.NoError(t, err)

	select {
	case msg := <-external:
		var captured entities.ChargeCaptured_v1
		require.NoError(t, json.Unmarshal(msg.Payload, &captured))
		assert.Equal(t, "ch_1", captured.Charge.ChargeID)
		assert.Equal(t, "evt_1", captured.Header.IdempotencyKey)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message on the external topic")
	}

	select {
	case msg := <-internal:
		var issued entities.TicketIssued_v1
		require.NoError(t, json.Unmarshal(msg.Payload, &issued))
		assert.Equal(t, "tic_1", issued.TicketID)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message on the internal topic")
	}
}

func TestEventBus_RejectsForeignEventTypes(t *testing.T) {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubsub.Close()

	bus, err := events.NewEventBus(pubsub, logger)
	require.NoError(t, err)

	type notAnEvent struct{ Name string }
	err = bus.Publish(context.Background(), notAnEvent{Name: "x"})

	assert.Error(t, err)
}
