package idempotency_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketsync/internal/idempotency"
)

func TestGetKey_ReturnsSeededKey(t *testing.T) {
	ctx := idempotency.WithKey(context.Background(), "evt_123")

	assert.Equal(t, "evt_123", idempotency.GetKey(ctx))
	assert.Equal(t, "evt_123", idempotency.GetKey(ctx))
}

func TestGetKey_MintsWhenUnseeded(t *testing.T) {
	ctx := context.Background()

	first := idempotency.GetKey(ctx)
	second := idempotency.GetKey(ctx)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestGetKey_EmptySeedMints(t *testing.T) {
	ctx := idempotency.WithKey(context.Background(), "")

	assert.NotEmpty(t, idempotency.GetKey(ctx))
}
