package repository

import (
	"context"
	"errors"
	"time"

	"ticketsync/internal/infrastructure/clients"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// RecordStore is the consumed slice of the spreadsheet backend: upsert
// by a named unique field, lookup by field value, patch by record id.
type RecordStore interface {
	Upsert(ctx context.Context, table, mergeField string, fields map[string]any) (clients.Record, error)
	FindBy(ctx context.Context, table, field string, value any) (clients.Record, error)
	Update(ctx context.Context, table, recordID string, fields map[string]any) (clients.Record, error)
	List(ctx context.Context, table string, fields ...string) ([]clients.Record, error)
}

// Field readers. Airtable JSON gives numbers as float64 and omits empty
// fields; these keep the coercion in one place.

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldInt(fields map[string]any, key string) int {
	if v, ok := fields[key].(float64); ok {
		return int(v)
	}
	return 0
}

func fieldFloat(fields map[string]any, key string) float64 {
	if v, ok := fields[key].(float64); ok {
		return v
	}
	return 0
}

func fieldTime(fields map[string]any, key string) *time.Time {
	raw, ok := fields[key].(string)
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func isoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
