package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Message struct {
	Topic   string
	Payload []byte
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// NotificationHandler processes one replication notification payload.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, payload []byte) error
}

// ConsumerWorker polls the notification topic and feeds each message to the
// orchestrator. A failing package is not an error at this layer: the
// orchestrator has already persisted the remainder, so the message is
// consumed either way and never redelivered.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  NotificationHandler
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler NotificationHandler, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := w.handler.HandleNotification(ctx, msg.Payload); err != nil {
			w.logger.WarnContext(ctx, "notification not fully replicated",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_notification",
				"outcome", "failure",
				"topic", msg.Topic,
				"error", err,
			)
		}
	}
	return nil
}
