package bm

import (
	"context"

	ports "ride-sim/internal/emulator/core/ports/driven"
)

// Publisher fans emulator events out on the emulator exchange.
type Publisher struct {
	broker   ports.IBroker
	exchange string
}

var _ ports.IEventPublisher = (*Publisher)(nil)

func NewPublisher(broker ports.IBroker) *Publisher {
	return &Publisher{broker: broker, exchange: emulatorExchangeName}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, msg any) error {
	return p.broker.PublishJSON(ctx, p.exchange, routingKey, msg)
}
