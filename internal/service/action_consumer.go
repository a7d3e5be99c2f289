package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"syslog-relay/internal/kafka"

	"github.com/rs/zerolog/log"
)

// ActionConsumerService pulls tasks off the queue and dispatches each one
// on its own goroutine.
type ActionConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type actionConsumerService struct {
	consumer   kafka.TaskConsumer
	dispatcher ActionDispatcher
	inFlight   sync.WaitGroup
}

func NewActionConsumerService(consumer kafka.TaskConsumer, dispatcher ActionDispatcher) ActionConsumerService {
	return &actionConsumerService{
		consumer:   consumer,
		dispatcher: dispatcher,
	}
}

func (s *actionConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.inFlight.Wait()
	log.Info().Msg("Starting Action Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Action Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		if err := s.processOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Msg("Context cancelled while fetching action task.")
				return
			}
			log.Error().Err(err).Msg("Error consuming action task")
			time.Sleep(1 * time.Second)
		}
	}
}

// processOne fetches one message, dispatches it asynchronously and
// commits. Undecodable messages are committed so they are not redelivered.
func (s *actionConsumerService) processOne(ctx context.Context) error {
	task, msg, err := s.consumer.FetchTask(ctx)
	if err != nil {
		if msg.Topic == "" {
			return err
		}
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping undecodable action task")
		return s.consumer.CommitMessages(ctx, msg)
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("kind", string(task.Kind)).Msg("Recovered from panic dispatching action")
			}
		}()
		// Actions have no cancellation contract and run to completion.
		_ = s.dispatcher.Dispatch(context.Background(), *task)
	}()

	return s.consumer.CommitMessages(ctx, msg)
}
