package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"syslog-relay/internal/model"
	"syslog-relay/internal/repository"
	"syslog-relay/internal/util"

	"github.com/google/uuid"
)

// inMemoryStore keeps devices and records in process memory. It is only
// suitable when the listener and the dispatcher share a process.
type inMemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*model.Device    // keyed by source IP
	records map[string]*model.LogRecord // keyed by record id
	now     func() time.Time
}

func NewInMemoryStore() repository.Store {
	return &inMemoryStore{
		devices: make(map[string]*model.Device),
		records: make(map[string]*model.LogRecord),
		now:     time.Now,
	}
}

func (s *inMemoryStore) FindOrCreateDevice(ctx context.Context, sourceIP string, sourcePort int) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[sourceIP]; ok {
		return copyDevice(d), nil
	}
	d := &model.Device{
		ID:         uuid.NewString(),
		SourceIP:   sourceIP,
		SourcePort: sourcePort,
		Logs:       []string{},
		CreatedAt:  s.now().UTC(),
	}
	s.devices[sourceIP] = d
	return copyDevice(d), nil
}

func (s *inMemoryStore) GetDevice(ctx context.Context, sourceIP string) (*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[sourceIP]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", sourceIP, repository.ErrNotFound)
	}
	return copyDevice(d), nil
}

func (s *inMemoryStore) AppendLogToDevice(ctx context.Context, device *model.Device, record *model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[device.SourceIP]
	if !ok {
		return fmt.Errorf("device %s: %w", device.SourceIP, repository.ErrNotFound)
	}
	d.LogCount++
	d.Logs = append(d.Logs, record.ID)
	*device = *copyDevice(d)
	return nil
}

func (s *inMemoryStore) SaveLogRecord(ctx context.Context, record *model.LogRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	stored := *record
	s.records[record.ID] = &stored
	return record.ID, nil
}

func (s *inMemoryStore) GetLogRecord(ctx context.Context, id string) (*model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("log record %s: %w", id, repository.ErrNotFound)
	}
	out := *r
	return &out, nil
}

func (s *inMemoryStore) UpdateThreadRef(ctx context.Context, id, threadRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("log record %s: %w", id, repository.ErrNotFound)
	}
	if r.ThreadRef != "" {
		return fmt.Errorf("log record %s: %w", id, repository.ErrThreadRefAlreadySet)
	}
	r.ThreadRef = threadRef
	return nil
}

func (s *inMemoryStore) QueryByIPWindow(ctx context.Context, sourceIP string, start, end time.Time) ([]model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogRecord, 0)
	for _, r := range s.records {
		if r.SourceIP != sourceIP || r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *inMemoryStore) CountByDay(ctx context.Context, sourceIP string, start, end time.Time) ([]model.DayBucket, error) {
	records, err := s.QueryByIPWindow(ctx, sourceIP, start, end)
	if err != nil {
		return nil, err
	}
	index := make(map[time.Time]int)
	buckets := make([]model.DayBucket, 0)
	for _, r := range records {
		key := util.DayUTC(r.CreatedAt)
		y, m, d := key.Date()
		if i, ok := index[key]; ok {
			buckets[i].Count++
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, model.DayBucket{Day: d, Month: m, Year: y, Count: 1})
	}
	return buckets, nil
}

func copyDevice(d *model.Device) *model.Device {
	out := *d
	out.Logs = append([]string(nil), d.Logs...)
	return &out
}
