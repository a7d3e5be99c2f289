package service

import (
	"context"
	"fmt"
	"time"

	"syslog-relay/internal/model"
	"syslog-relay/internal/notifier"
	"syslog-relay/internal/parser"
	"syslog-relay/internal/repository"

	"github.com/rs/zerolog/log"
)

// IngestService runs one datagram through parse, persist, archive and
// notify.
type IngestService interface {
	Ingest(ctx context.Context, payload []byte, sourceIP string, sourcePort int) (*model.LogRecord, error)
}

type ingestService struct {
	parser   parser.LogParser
	store    repository.Store
	archive  repository.LogArchive
	notifier notifier.Notifier
	now      func() time.Time
}

func NewIngestService(p parser.LogParser, store repository.Store, archive repository.LogArchive, n notifier.Notifier) IngestService {
	return &ingestService{
		parser:   p,
		store:    store,
		archive:  archive,
		notifier: n,
		now:      time.Now,
	}
}

// Ingest persists the record unconditionally; notification depends on the
// notifier's threshold. Only parse and store errors are returned.
func (s *ingestService) Ingest(ctx context.Context, payload []byte, sourceIP string, sourcePort int) (*model.LogRecord, error) {
	record, err := s.parser.Parse(payload, sourceIP, sourcePort)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = s.now().UTC()

	device, err := s.store.FindOrCreateDevice(ctx, sourceIP, sourcePort)
	if err != nil {
		return nil, fmt.Errorf("resolve device %s: %w", sourceIP, err)
	}
	if _, err := s.store.SaveLogRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("save log record from %s: %w", sourceIP, err)
	}
	if err := s.store.AppendLogToDevice(ctx, device, record); err != nil {
		return nil, fmt.Errorf("append log %s to device %s: %w", record.ID, sourceIP, err)
	}

	if err := s.archive.Archive(ctx, record); err != nil {
		log.Warn().Err(err).Str("record_id", record.ID).Msg("Failed to archive log record")
	}

	res := s.notifier.Notify(ctx, record)
	log.Debug().
		Str("record_id", record.ID).
		Str("source_ip", sourceIP).
		Int("level", record.SeverityLevel).
		Int("device_log_count", device.LogCount).
		Bool("posted", res.Posted).
		Str("reason", res.Reason).
		Msg("Log record ingested")
	return record, nil
}
