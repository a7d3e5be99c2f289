package kafka

import (
	"context"
	"errors"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

// TaskPublisher enqueues interaction tasks for the dispatcher.
type TaskPublisher interface {
	Publish(ctx context.Context, task model.ActionTask) error
	Close() error
}

type kafkaTaskPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaTaskPublisher(lc fx.Lifecycle, cfg *config.Config) (TaskPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.ActionTopic == "" {
		log.Error().Msg("Kafka brokers or action topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ActionTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	})
	p := &kafkaTaskPublisher{
		writer: writer,
		topic:  cfg.Kafka.ActionTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka task publisher")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.ActionTopic).Msg("Kafka task publisher initialized")
	return p, nil
}

func (p *kafkaTaskPublisher) Publish(ctx context.Context, task model.ActionTask) error {
	value, err := EncodeTask(task)
	if err != nil {
		log.Error().Err(err).Str("kind", string(task.Kind)).Msg("Failed to encode action task for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{Key: taskKey(task), Value: value})
	if err != nil {
		log.Error().Err(err).Str("kind", string(task.Kind)).Msg("Failed to write action task to Kafka")
		return err
	}
	log.Debug().Str("kind", string(task.Kind)).Str("topic", p.topic).Msg("Produced action task to Kafka")
	return nil
}

func (p *kafkaTaskPublisher) Close() error {
	return p.writer.Close()
}
