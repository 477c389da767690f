// Package idempotency carries the per-delivery idempotency key through
// the context. The webhook handler seeds it with the Stripe event id,
// so everything published while handling one delivery collapses onto
// the same key when Stripe redelivers.
package idempotency

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// GetKey returns the key seeded on the context. Flows that did not come
// through the webhook (poller, manual issuance) get a fresh key instead,
// each such invocation is its own delivery.
func GetKey(ctx context.Context) string {
	if key, ok := ctx.Value(ctxKey{}).(string); ok && key != "" {
		return key
	}
	return uuid.NewString()
}
