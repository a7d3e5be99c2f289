package repository

import (
	"context"

	"syslog-relay/internal/model"
)

// LogArchive receives a copy of every saved record for long-term search.
// It is best effort; ingestion never depends on it.
type LogArchive interface {
	Archive(ctx context.Context, record *model.LogRecord) error
	Close(ctx context.Context) error
}
