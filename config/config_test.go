package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "6514")
	t.Setenv("ROLES", "listener, dispatcher")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 6514, cfg.Listener.Port)
	assert.Equal(t, 2, cfg.Notifier.SeverityThreshold)
	assert.Equal(t, 60*time.Second, cfg.Notifier.DedupWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Elasticsearch.Addresses)
	assert.True(t, cfg.HasRole(RoleListener))
	assert.True(t, cfg.HasRole(RoleDispatcher))
	assert.False(t, cfg.HasRole(RoleWebhook))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
