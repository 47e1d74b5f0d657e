package services

import (
	"context"
	"errors"
	"sync"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"
)

var (
	ErrChannelConnected = errors.New("notification channel already connected")
	ErrChannelClosed    = errors.New("notification channel closed")
)

// NotificationChannel keeps one subscription to the ride stream of a single
// participant and hands every state change to onUpdate. Repeats of the last
// (ride_id, status) pair are dropped.
type NotificationChannel struct {
	transport driven.INotificationTransport
	cred      model.Credential
	onUpdate  func(model.RideNotification)
	log       mylogger.Logger

	mu     sync.Mutex
	latest *model.RideNotification
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func NewNotificationChannel(transport driven.INotificationTransport, cred model.Credential, log mylogger.Logger, onUpdate func(model.RideNotification)) *NotificationChannel {
	return &NotificationChannel{
		transport: transport,
		cred:      cred,
		onUpdate:  onUpdate,
		log:       log.With("participant_id", cred.ParticipantID),
	}
}

// Connect opens the subscription. It returns once the transport accepted it;
// deliveries then happen on a goroutine owned by the channel.
func (c *NotificationChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.cancel != nil {
		return ErrChannelConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.transport.Subscribe(ctx, c.cred)
	if err != nil {
		cancel()
		return err
	}
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for n := range stream {
			c.deliver(n)
		}
		c.log.Action("notification_stream_ended").Debug("stream closed")
	}(c.done)
	return nil
}

// deliver reports whether n was propagated.
func (c *NotificationChannel) deliver(n model.RideNotification) bool {
	c.mu.Lock()
	if c.closed || (c.latest != nil && c.latest.SameState(n)) {
		c.mu.Unlock()
		return false
	}
	stored := n.Clone()
	c.latest = &stored
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(n.Clone())
	}
	return true
}

// Latest returns a copy of the last propagated notification.
func (c *NotificationChannel) Latest() (model.RideNotification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return model.RideNotification{}, false
	}
	return c.latest.Clone(), true
}

// Close tears the subscription down and waits for the delivery goroutine.
// Safe to call any number of times.
func (c *NotificationChannel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
