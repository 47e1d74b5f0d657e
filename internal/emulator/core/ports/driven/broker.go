package driven

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumeOptions tune how a queue is read.
type ConsumeOptions struct {
	Prefetch     int
	AutoAck      bool
	QueueDurable bool
}

// IBroker is the message broker connection.
type IBroker interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, msg any) error
	Consume(ctx context.Context, queueName, bindingKey string, opts ConsumeOptions) (<-chan amqp.Delivery, error)
	IsAlive() bool
	Close() error
}

// IEventPublisher fans emulator events out. Implementations must not block the
// caller for long; failures are only logged by callers.
type IEventPublisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}
