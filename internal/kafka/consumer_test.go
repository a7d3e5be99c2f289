package kafka

import (
	"testing"

	"syslog-relay/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestReaderConfigStartsFromOldestOffset(t *testing.T) {
	rc := readerConfig(config.KafkaConfig{
		Brokers:       []string{"k1:9092"},
		ActionTopic:   "slack_actions",
		ConsumerGroup: "action_dispatcher_group",
	})

	assert.Equal(t, kafka.FirstOffset, rc.StartOffset)
	assert.Equal(t, "action_dispatcher_group", rc.GroupID)
	assert.Equal(t, "slack_actions", rc.Topic)
	assert.Zero(t, rc.CommitInterval)
}
