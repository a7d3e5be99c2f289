package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"
	"syslog-relay/internal/repository"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type elasticLogArchive struct {
	client          *elasticsearch.Client
	bulkIndexer     esutil.BulkIndexer
	indexPrefix     string
	countSuccessful uint64
	countFailed     uint64
}

// NewLogArchive returns an Elasticsearch bulk archive, or a no-op archive
// when no addresses are configured.
func NewLogArchive(lc fx.Lifecycle, cfg *config.Config) (repository.LogArchive, error) {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		log.Info().Msg("Elasticsearch addresses not configured, log archive disabled")
		return noopArchive{}, nil
	}

	archive, err := newElasticLogArchive(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Elasticsearch BulkIndexer...")
			return archive.Close(ctx)
		},
	})
	return archive, nil
}

func newElasticLogArchive(cfg *config.Config) (*elasticLogArchive, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: time.Second * 10,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
	esCfg := elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Transport: transport,
	}

	var esClient *elasticsearch.Client
	var err error
	operation := func() error {
		esClient, err = elasticsearch.NewClient(esCfg)
		if err != nil {
			log.Warn().Err(err).Msg("Attempt failed: Error creating the Elasticsearch client")
			return err
		}

		res, errPing := esClient.Info(esClient.Info.WithContext(context.Background()))
		if errPing != nil {
			log.Warn().Err(errPing).Msg("Attempt failed: Elasticsearch Info() call")
			return errPing
		}
		defer res.Body.Close()
		if res.IsError() {
			errMsg := fmt.Errorf("elasticsearch Info() returned error status: %s", res.Status())
			log.Warn().Err(errMsg).Msg("Attempt failed: Elasticsearch ping returned error status")
			return errMsg
		}
		log.Info().Str("server_info", res.String()).Msg("Elasticsearch client initialized and connection verified")
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = 90 * time.Second

	log.Info().Msg("Attempting to connect to Elasticsearch with retries...")
	if err := backoff.Retry(operation, connectBackoff); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Elasticsearch after multiple retries")
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	archive := &elasticLogArchive{
		client:      esClient,
		indexPrefix: cfg.Elasticsearch.LogIndex,
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        esClient,
		NumWorkers:    cfg.Elasticsearch.BulkWorkers,
		FlushBytes:    cfg.Elasticsearch.FlushBytes,
		FlushInterval: cfg.Elasticsearch.FlushInterval,
		OnError: func(ctx context.Context, err error) {
			log.Error().Err(err).Msg("BulkIndexer error")
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Error creating the BulkIndexer")
		return nil, fmt.Errorf("create bulk indexer: %w", err)
	}
	archive.bulkIndexer = bi
	log.Info().Str("index_prefix", archive.indexPrefix).Msg("Elasticsearch log archive initialized")
	return archive, nil
}

// Archive queues record for indexing into the index of its creation day.
func (a *elasticLogArchive) Archive(ctx context.Context, record *model.LogRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		atomic.AddUint64(&a.countFailed, 1)
		return fmt.Errorf("marshal log record %s: %w", record.ID, err)
	}

	err = a.bulkIndexer.Add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		Index:      a.indexName(record.CreatedAt),
		DocumentID: record.ID,
		Body:       bytes.NewReader(data),
		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			atomic.AddUint64(&a.countSuccessful, 1)
		},
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			atomic.AddUint64(&a.countFailed, 1)
			if err != nil {
				log.Error().Err(err).Str("record_id", item.DocumentID).Msg("Failed to archive log record")
				return
			}
			log.Error().Str("record_id", item.DocumentID).Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to archive log record")
		},
	})
	if err != nil {
		atomic.AddUint64(&a.countFailed, 1)
		return fmt.Errorf("queue log record %s: %w", record.ID, err)
	}
	return nil
}

func (a *elasticLogArchive) Close(ctx context.Context) error {
	err := a.bulkIndexer.Close(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error closing BulkIndexer")
	}

	stats := a.bulkIndexer.Stats()
	log.Info().
		Uint64("indexed", stats.NumIndexed).
		Uint64("added", stats.NumAdded).
		Uint64("flushed", stats.NumFlushed).
		Uint64("failed", stats.NumFailed).
		Uint64("requests", stats.NumRequests).
		Uint64("callback_successful", atomic.LoadUint64(&a.countSuccessful)).
		Uint64("callback_failed", atomic.LoadUint64(&a.countFailed)).
		Msg("Elasticsearch BulkIndexer final stats")
	return err
}

// indexName is "<prefix>-YYYY-MM-DD" for the UTC day of t.
func (a *elasticLogArchive) indexName(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return fmt.Sprintf("%s-%s", a.indexPrefix, t.UTC().Format("2006-01-02"))
}

type noopArchive struct{}

func (noopArchive) Archive(context.Context, *model.LogRecord) error { return nil }
func (noopArchive) Close(context.Context) error                      { return nil }
