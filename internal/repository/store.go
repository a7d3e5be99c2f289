package repository

import (
	"context"
	"errors"
	"time"

	"syslog-relay/internal/model"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrThreadRefAlreadySet = errors.New("thread reference already set")
	// ErrDeviceWriteConflict marks a lost race creating a device. Stores
	// resolve it by re-reading; callers never see it.
	ErrDeviceWriteConflict = errors.New("device write conflict")
)

// DeviceStore holds the per-source aggregate.
type DeviceStore interface {
	FindOrCreateDevice(ctx context.Context, sourceIP string, sourcePort int) (*model.Device, error)
	GetDevice(ctx context.Context, sourceIP string) (*model.Device, error)
	// AppendLogToDevice increments the count and appends the record id in
	// one atomic step. device is refreshed with the stored state.
	AppendLogToDevice(ctx context.Context, device *model.Device, record *model.LogRecord) error
}

// LogStore holds the append-only log records.
type LogStore interface {
	SaveLogRecord(ctx context.Context, record *model.LogRecord) (string, error)
	GetLogRecord(ctx context.Context, id string) (*model.LogRecord, error)
	UpdateThreadRef(ctx context.Context, id, threadRef string) error
	QueryByIPWindow(ctx context.Context, sourceIP string, start, end time.Time) ([]model.LogRecord, error)
	// CountByDay groups the records of [start, end) by UTC calendar day.
	CountByDay(ctx context.Context, sourceIP string, start, end time.Time) ([]model.DayBucket, error)
}

type Store interface {
	DeviceStore
	LogStore
}
