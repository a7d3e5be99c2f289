package elasticsearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestNewLogArchiveDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	archive, err := NewLogArchive(lc, &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, noopArchive{}, archive)
	assert.NoError(t, archive.Archive(context.Background(), &model.LogRecord{ID: "x"}))
}

func TestArchiveBulkIndexesRecord(t *testing.T) {
	var mu sync.Mutex
	var bulkBodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/_bulk") {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			bulkBodies = append(bulkBodies, string(body))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[{"index":{"_index":"syslogs-2024-01-02","_id":"rec-1","status":201}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"test","cluster_name":"test","version":{"number":"8.18.0","build_flavor":"default"},"tagline":"You Know, for Search"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{Elasticsearch: config.ElasticsearchConfig{
		Addresses:     []string{srv.URL},
		LogIndex:      "syslogs",
		BulkWorkers:   1,
		FlushBytes:    1 << 20,
		FlushInterval: time.Hour,
	}}
	lc := fxtest.NewLifecycle(t)
	archive, err := NewLogArchive(lc, cfg)
	require.NoError(t, err)

	record := &model.LogRecord{
		ID: "rec-1", SourceIP: "10.0.0.1", SeverityLevel: 1, Message: "eth0 down",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, archive.Archive(context.Background(), record))
	require.NoError(t, archive.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bulkBodies, 1)
	assert.Contains(t, bulkBodies[0], `"_index":"syslogs-2024-01-02"`)
	assert.Contains(t, bulkBodies[0], `"_id":"rec-1"`)
	assert.Contains(t, bulkBodies[0], `"syslog":"eth0 down"`)
}
