package repository

import (
	"context"

	"kami-system/internal/domain/model"
)

// LogRepository is the port over the log: keyspace.
type LogRepository interface {
	Append(ctx context.Context, entry *model.RedemptionLog) error
	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*model.RedemptionLog, error)
}
