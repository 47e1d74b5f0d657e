package bm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	ports "ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange, key string
	msg           any
}

type stubBroker struct {
	mu         sync.Mutex
	published  []published
	deliveries chan amqp.Delivery
	queue      string
	binding    string
}

func (b *stubBroker) PublishJSON(ctx context.Context, exchange, routingKey string, msg any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{exchange, routingKey, msg})
	return nil
}

func (b *stubBroker) Consume(ctx context.Context, queueName, bindingKey string, opts ports.ConsumeOptions) (<-chan amqp.Delivery, error) {
	b.queue, b.binding = queueName, bindingKey
	return b.deliveries, nil
}

func (b *stubBroker) IsAlive() bool { return true }
func (b *stubBroker) Close() error  { return nil }

type ackRecorder struct {
	mu     sync.Mutex
	acks   int
	nacks  int
	signal chan struct{}
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacks++
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return nil }

func TestPublisherUsesEmulatorExchange(t *testing.T) {
	broker := &stubBroker{}
	p := NewPublisher(broker)
	if err := p.Publish(context.Background(), dto.StatusRoutingKey("c1"), dto.EmulatorEvent{Type: dto.EventStatusPushed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(broker.published) != 1 {
		t.Fatalf("expected one message, got %d", len(broker.published))
	}
	got := broker.published[0]
	if got.exchange != "emulator_topic" || got.key != "emulator.status.c1" {
		t.Fatalf("published to %s/%s", got.exchange, got.key)
	}
}

func TestConfigConsumer(t *testing.T) {
	broker := &stubBroker{deliveries: make(chan amqp.Delivery)}
	var mu sync.Mutex
	var handled []dto.ConfigMessage
	handler := func(msg dto.ConfigMessage) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg)
		if msg.Type == "explode" {
			return errors.New("boom")
		}
		return nil
	}
	c := NewConfigConsumer(broker, handler, mylogger.Discard())
	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if broker.queue != ConfigQueue || broker.binding != ConfigBindingKey {
		t.Fatalf("consumed %s/%s", broker.queue, broker.binding)
	}

	ack := &ackRecorder{signal: make(chan struct{}, 3)}
	good, _ := json.Marshal(dto.ConfigMessage{
		Type:    dto.MessageTypeSimulatorConfig,
		Payload: json.RawMessage(`{"ghostChairEnabled":true}`),
	})
	bad, _ := json.Marshal(dto.ConfigMessage{Type: "explode"})
	for _, body := range [][]byte{good, []byte("{not json"), bad} {
		broker.deliveries <- amqp.Delivery{Acknowledger: ack, Body: body}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-ack.signal:
		case <-time.After(time.Second):
			t.Fatal("delivery not settled")
		}
	}
	close(broker.deliveries)

	ack.mu.Lock()
	defer ack.mu.Unlock()
	if ack.acks != 1 || ack.nacks != 2 {
		t.Fatalf("acks=%d nacks=%d", ack.acks, ack.nacks)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 || handled[0].Type != dto.MessageTypeSimulatorConfig {
		t.Fatalf("handled = %+v", handled)
	}
}
