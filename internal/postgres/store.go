package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"
	"syslog-relay/internal/repository"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

const (
	devicesTable    = "devices"
	logRecordsTable = "log_records"

	deviceColumns = "id, source_ip, source_port, log_count, log_ids, created_at"
	recordColumns = "id, source_ip, source_port, log_time, level, message, thread_ref, created_at"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, migrates the schema and registers the pool
// for shutdown.
func NewPostgresStore(lc fx.Lifecycle, cfg *config.Config) (repository.Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse database DSN")
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create database connection pool")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	operation := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("Attempt failed: database ping")
			return err
		}
		return nil
	}
	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = 60 * time.Second
	if err := backoff.Retry(operation, connectBackoff); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping database after retries")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection pool created and verified.")

	if err := runMigrations(cfg.Database.DSN); err != nil {
		pool.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing database connection pool...")
			pool.Close()
			return nil
		},
	})
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) FindOrCreateDevice(ctx context.Context, sourceIP string, sourcePort int) (*model.Device, error) {
	device, err := s.GetDevice(ctx, sourceIP)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (id, source_ip, source_port, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (source_ip) DO NOTHING",
		devicesTable)
	tag, err := s.pool.Exec(ctx, insertSQL, uuid.NewString(), sourceIP, sourcePort, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Str("source_ip", sourceIP).Msg("Failed to insert device")
		return nil, fmt.Errorf("insert device %s: %w", sourceIP, err)
	}
	if tag.RowsAffected() == 0 {
		// Another handler created it first; the unique key makes the
		// re-read below return that row.
		log.Debug().Err(repository.ErrDeviceWriteConflict).Str("source_ip", sourceIP).Msg("Falling back to device lookup")
	}
	return s.GetDevice(ctx, sourceIP)
}

func (s *postgresStore) GetDevice(ctx context.Context, sourceIP string) (*model.Device, error) {
	querySQL := fmt.Sprintf("SELECT %s FROM %s WHERE source_ip = $1", deviceColumns, devicesTable)
	device, err := scanDevice(s.pool.QueryRow(ctx, querySQL, sourceIP))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", sourceIP, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query device %s: %w", sourceIP, err)
	}
	return device, nil
}

func (s *postgresStore) AppendLogToDevice(ctx context.Context, device *model.Device, record *model.LogRecord) error {
	updateSQL := fmt.Sprintf(
		"UPDATE %s SET log_count = log_count + 1, log_ids = array_append(log_ids, $2) WHERE source_ip = $1 RETURNING %s",
		devicesTable, deviceColumns)
	updated, err := scanDevice(s.pool.QueryRow(ctx, updateSQL, device.SourceIP, record.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("device %s: %w", device.SourceIP, repository.ErrNotFound)
		}
		log.Error().Err(err).Str("source_ip", device.SourceIP).Str("record_id", record.ID).Msg("Failed to append log to device")
		return fmt.Errorf("append log to device %s: %w", device.SourceIP, err)
	}
	*device = *updated
	return nil
}

func (s *postgresStore) SaveLogRecord(ctx context.Context, record *model.LogRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)", logRecordsTable, recordColumns)
	_, err := s.pool.Exec(ctx, insertSQL,
		record.ID, record.SourceIP, record.SourcePort, record.Timestamp,
		record.SeverityLevel, record.Message, nullableString(record.ThreadRef), record.CreatedAt)
	if err != nil {
		log.Error().Err(err).Str("source_ip", record.SourceIP).Msg("Failed to insert log record")
		return "", fmt.Errorf("insert log record: %w", err)
	}
	return record.ID, nil
}

func (s *postgresStore) GetLogRecord(ctx context.Context, id string) (*model.LogRecord, error) {
	querySQL := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", recordColumns, logRecordsTable)
	record, err := scanRecord(s.pool.QueryRow(ctx, querySQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("log record %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query log record %s: %w", id, err)
	}
	return record, nil
}

func (s *postgresStore) UpdateThreadRef(ctx context.Context, id, threadRef string) error {
	updateSQL := fmt.Sprintf("UPDATE %s SET thread_ref = $2 WHERE id = $1 AND thread_ref IS NULL", logRecordsTable)
	tag, err := s.pool.Exec(ctx, updateSQL, id, threadRef)
	if err != nil {
		return fmt.Errorf("update thread ref %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	existsSQL := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", logRecordsTable)
	if err := s.pool.QueryRow(ctx, existsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("check log record %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("log record %s: %w", id, repository.ErrNotFound)
	}
	return fmt.Errorf("log record %s: %w", id, repository.ErrThreadRefAlreadySet)
}

func (s *postgresStore) QueryByIPWindow(ctx context.Context, sourceIP string, start, end time.Time) ([]model.LogRecord, error) {
	querySQL := fmt.Sprintf(
		"SELECT %s FROM %s WHERE source_ip = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at ASC",
		recordColumns, logRecordsTable)
	rows, err := s.pool.Query(ctx, querySQL, sourceIP, start, end)
	if err != nil {
		log.Error().Err(err).Str("query", querySQL).Msg("Failed to query log records")
		return nil, fmt.Errorf("window query failed: %w", err)
	}
	defer rows.Close()

	records := make([]model.LogRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan log record row")
			continue
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating log records: %w", err)
	}
	return records, nil
}

func (s *postgresStore) CountByDay(ctx context.Context, sourceIP string, start, end time.Time) ([]model.DayBucket, error) {
	querySQL := fmt.Sprintf(`
        SELECT
            EXTRACT(DAY FROM created_at AT TIME ZONE 'UTC')::int AS day,
            EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
            EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
            COUNT(*) AS count
        FROM %s
        WHERE source_ip = $1 AND created_at >= $2 AND created_at < $3
        GROUP BY year, month, day
        ORDER BY year, month, day
    `, logRecordsTable)

	log.Debug().Str("source_ip", sourceIP).Time("start", start).Time("end", end).Msg("Executing day bucket query")

	rows, err := s.pool.Query(ctx, querySQL, sourceIP, start, end)
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute day bucket query")
		return nil, fmt.Errorf("day bucket query failed: %w", err)
	}
	defer rows.Close()

	buckets := make([]model.DayBucket, 0)
	for rows.Next() {
		var day, month, year int
		var count int64
		if err := rows.Scan(&day, &month, &year, &count); err != nil {
			log.Error().Err(err).Msg("Failed to scan day bucket row")
			continue
		}
		buckets = append(buckets, model.DayBucket{Day: day, Month: time.Month(month), Year: year, Count: int(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating day buckets: %w", err)
	}
	return buckets, nil
}

func scanDevice(row pgx.Row) (*model.Device, error) {
	var d model.Device
	if err := row.Scan(&d.ID, &d.SourceIP, &d.SourcePort, &d.LogCount, &d.Logs, &d.CreatedAt); err != nil {
		return nil, err
	}
	if d.Logs == nil {
		d.Logs = []string{}
	}
	return &d, nil
}

func scanRecord(row pgx.Row) (*model.LogRecord, error) {
	var r model.LogRecord
	var threadRef *string
	if err := row.Scan(&r.ID, &r.SourceIP, &r.SourcePort, &r.Timestamp, &r.SeverityLevel, &r.Message, &threadRef, &r.CreatedAt); err != nil {
		return nil, err
	}
	if threadRef != nil {
		r.ThreadRef = *threadRef
	}
	return &r, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
