package service

import (
	"context"

	"github.com/ecomshop/event-pipeline/internal/infrastructure/rabbitmq"
)

// EventPublisher is the minimal publishing seam the stages need; satisfied by
// *rabbitmq.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts ...rabbitmq.Option) error
}

// ProcessedMarker is the idempotency fence handlers use to keep side effects
// single-shot under redelivery; satisfied by *redis.ProcessedStore.
type ProcessedMarker interface {
	MarkOnce(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context, id string) error
}
