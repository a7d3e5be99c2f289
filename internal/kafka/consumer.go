package kafka

import (
	"context"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

// TaskConsumer reads interaction tasks with manual commits.
type TaskConsumer interface {
	// FetchTask returns the next task. On a decode error the raw message
	// is still returned so the caller can commit past it.
	FetchTask(ctx context.Context) (*model.ActionTask, kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaTaskConsumer struct {
	reader *kafka.Reader
}

func NewKafkaTaskConsumer(lc fx.Lifecycle, cfg *config.Config) (TaskConsumer, error) {
	reader := kafka.NewReader(readerConfig(cfg.Kafka))
	c := &kafkaTaskConsumer{
		reader: reader,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("group", cfg.Kafka.ConsumerGroup).Msg("Closing Kafka task consumer")
			return c.Close()
		},
	})
	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.ActionTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Kafka task consumer initialized")
	return c, nil
}

// readerConfig starts a new group at the oldest offset so tasks queued
// before its first commit are still dispatched.
func readerConfig(cfg config.KafkaConfig) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.ConsumerGroup,
		Topic:          cfg.ActionTopic,
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		MaxWait:        time.Second,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	}
}

func (c *kafkaTaskConsumer) FetchTask(ctx context.Context) (*model.ActionTask, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, kafka.Message{}, err
	}
	log.Debug().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Fetched action task from Kafka")

	task, err := DecodeTask(msg.Value)
	if err != nil {
		log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to decode Kafka message value")
		return nil, msg, err
	}
	return task, msg, nil
}

func (c *kafkaTaskConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	err := c.reader.CommitMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Int("count", len(msgs)).Msg("Failed to commit Kafka messages")
		return err
	}
	log.Debug().Int("count", len(msgs)).Int64("last_offset", msgs[len(msgs)-1].Offset).Msg("Committed Kafka messages")
	return nil
}

func (c *kafkaTaskConsumer) Close() error {
	return c.reader.Close()
}
