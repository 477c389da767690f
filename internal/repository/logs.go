package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const logsTable = "Logs"

// LogEntry is the operator-facing audit trail row. It complements, not
// replaces, the structured service log.
type LogEntry struct {
	Level        string
	Module       string
	Action       string
	Status       string
	Message      string
	UserID       string
	ObjectType   string
	ObjectID     string
	ErrorDetails string
}

// LogsRepo appends audit entries to the Logs table. Appends are
// best-effort: an unreachable store must never take a pipeline down just
// because the audit row could not be written.
type LogsRepo struct {
	store  RecordStore
	logger zerolog.Logger
}

func NewLogsRepo(store RecordStore, logger zerolog.Logger) *LogsRepo {
	return &LogsRepo{
		store:  store,
		logger: logger.With().Str("component", "audit_log").Logger(),
	}
}

func (r *LogsRepo) Append(ctx context.Context, entry LogEntry) {
	if entry.Level == "" {
		entry.Level = "INFO"
	}

	fields := map[string]any{
		"log_id":        uuid.NewString(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"level":         entry.Level,
		"module":        entry.Module,
		"action":        entry.Action,
		"status":        entry.Status,
		"message":       entry.Message,
		"user_id":       entry.UserID,
		"object_type":   entry.ObjectType,
		"object_id":     entry.ObjectID,
		"error_details": entry.ErrorDetails,
	}

	if _, err := r.store.Upsert(ctx, logsTable, "", fields); err != nil {
		r.logger.Warn().Err(err).
			Str("module", entry.Module).
			Str("action", entry.Action).
			Msg("audit entry not persisted")
	}
}
