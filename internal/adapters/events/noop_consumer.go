package events

import "context"

// NoopConsumer keeps the worker loop alive when no brokers are configured,
// leaving the HTTP replay endpoint as the only trigger.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}
