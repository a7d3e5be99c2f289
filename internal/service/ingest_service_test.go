package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/chat/chattest"
	"syslog-relay/internal/model"
	"syslog-relay/internal/notifier"
	"syslog-relay/internal/parser"
	"syslog-relay/internal/repository"
	"syslog-relay/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingArchive struct {
	mu      sync.Mutex
	ids     []string
	failErr error
}

func (a *recordingArchive) Archive(ctx context.Context, record *model.LogRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failErr != nil {
		return a.failErr
	}
	a.ids = append(a.ids, record.ID)
	return nil
}

func (a *recordingArchive) Close(context.Context) error { return nil }

type ingestFixture struct {
	svc     IngestService
	store   repository.Store
	client  *chattest.MockClient
	archive *recordingArchive
}

func newIngestFixture(threshold int) *ingestFixture {
	st := store.NewInMemoryStore()
	client := &chattest.MockClient{Channel: "C0ALERTS"}
	archive := &recordingArchive{}
	cfg := &config.Config{Notifier: config.NotifierConfig{SeverityThreshold: threshold}}
	n := notifier.NewNotifier(cfg, client, st)
	return &ingestFixture{
		svc:     NewIngestService(parser.NewSyslogParser(), st, archive, n),
		store:   st,
		client:  client,
		archive: archive,
	}
}

func TestIngestEndToEnd(t *testing.T) {
	f := newIngestFixture(2)
	f.client.On("PostMessage", mock.Anything, mock.Anything).Return("1700000000.000100", nil).Once()

	payload := []byte(`"Jan 2 00:00:00 host: 1 - link down" - "1" - "eth0 down"`)
	record, err := f.svc.Ingest(context.Background(), payload, "192.0.2.10", 51514)
	require.NoError(t, err)
	assert.Equal(t, 1, record.SeverityLevel)
	assert.Equal(t, "eth0 down", record.Message)
	assert.Equal(t, "192.0.2.10", record.SourceIP)

	device, err := f.store.GetDevice(context.Background(), "192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, 1, device.LogCount)
	assert.Equal(t, []string{record.ID}, device.Logs)

	stored, err := f.store.GetLogRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", stored.ThreadRef)

	f.client.AssertNumberOfCalls(t, "PostMessage", 1)
	assert.Equal(t, []string{record.ID}, f.archive.ids)
}

func TestIngestSuppressedStillPersists(t *testing.T) {
	f := newIngestFixture(2)

	record, err := f.svc.Ingest(context.Background(), []byte("sw: Jan 2 00:00:00: up - 6 - interface up"), "192.0.2.11", 514)
	require.NoError(t, err)

	device, err := f.store.GetDevice(context.Background(), "192.0.2.11")
	require.NoError(t, err)
	assert.Equal(t, 1, device.LogCount)

	stored, err := f.store.GetLogRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasThread())
	f.client.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything)
}

func TestIngestMalformedDropsWithoutWrites(t *testing.T) {
	f := newIngestFixture(2)

	_, err := f.svc.Ingest(context.Background(), []byte("garbage"), "192.0.2.12", 514)
	assert.ErrorIs(t, err, parser.ErrMalformedRecord)

	_, err = f.store.GetDevice(context.Background(), "192.0.2.12")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIngestArchiveAndNotifyFailuresDoNotFail(t *testing.T) {
	f := newIngestFixture(2)
	f.archive.failErr = errors.New("cluster red")
	f.client.On("PostMessage", mock.Anything, mock.Anything).Return("", errors.New("slack down"))

	record, err := f.svc.Ingest(context.Background(), []byte("sw: t: x - 0 - fan failure"), "192.0.2.13", 514)
	require.NoError(t, err)

	stored, err := f.store.GetLogRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasThread())
}

func TestIngestConcurrentSameSourceNoLostUpdates(t *testing.T) {
	f := newIngestFixture(-1)
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("sw: %s: x - 5 - event %d", time.Now().Format("15:04:05"), i)
			_, err := f.svc.Ingest(context.Background(), []byte(payload), "192.0.2.20", 514)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	device, err := f.store.GetDevice(context.Background(), "192.0.2.20")
	require.NoError(t, err)
	assert.Equal(t, n, device.LogCount)
	assert.Len(t, device.Logs, n)
}
