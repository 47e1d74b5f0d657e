package bm

import (
	"context"
	"encoding/json"

	"ride-sim/internal/emulator/core/domain/dto"
	ports "ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ConfigQueue      = "simulator_config"
	ConfigBindingKey = "simulator.config"
)

// ConfigHandler applies one config message.
type ConfigHandler func(msg dto.ConfigMessage) error

// ConfigConsumer feeds the simulator config queue into a handler.
type ConfigConsumer struct {
	broker  ports.IBroker
	handler ConfigHandler
	log     mylogger.Logger
}

func NewConfigConsumer(broker ports.IBroker, handler ConfigHandler, log mylogger.Logger) *ConfigConsumer {
	return &ConfigConsumer{broker: broker, handler: handler, log: log.Action("config_consumer")}
}

// Subscribe starts consuming. Deliveries are handled on a goroutine until ctx
// is done.
func (c *ConfigConsumer) Subscribe(ctx context.Context) error {
	msgCh, err := c.broker.Consume(ctx, ConfigQueue, ConfigBindingKey, ports.ConsumeOptions{
		Prefetch:     1,
		AutoAck:      false,
		QueueDurable: true,
	})
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgCh {
			c.handle(msg)
		}
		c.log.Info("config queue closed")
	}()
	return nil
}

func (c *ConfigConsumer) handle(msg amqp.Delivery) {
	var cfgMsg dto.ConfigMessage
	if err := json.Unmarshal(msg.Body, &cfgMsg); err != nil {
		c.log.Error("failed to unmarshal config message", err)
		_ = msg.Nack(false, false)
		return
	}
	if err := c.handler(cfgMsg); err != nil {
		c.log.Error("failed to apply config message", err, "type", cfgMsg.Type)
		_ = msg.Nack(false, false)
		return
	}
	if err := msg.Ack(false); err != nil {
		c.log.Error("failed to acknowledge message", err)
	}
}
