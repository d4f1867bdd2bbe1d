package ports

import "context"

// EventPublisher emits replication outcome events for downstream observers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
