// Package push delivers best-effort notifications to mobile clients.
package push

import (
	"context"
	"sync"
	"time"

	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"go.uber.org/zap"
)

const defaultSendTimeout = 10 * time.Second

// Notification is addressed to a topic; mobile clients subscribe to the
// session token of the lock they own.
type Notification struct {
	Topic string
	Title string
	Body  string
}

// Sender delivers one notification through a concrete backend.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans notifications out to a Sender in the background. Callers
// get no result: delivery failures are counted and logged, never returned.
type Dispatcher struct {
	sender  Sender
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher over sender. A nil sender drops everything.
func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, logger: logger, timeout: defaultSendTimeout}
}

// Dispatch queues n for delivery and returns immediately.
func (d *Dispatcher) Dispatch(n Notification) {
	if d == nil || d.sender == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, n); err != nil {
			metrics.PushFailures.Inc()
			d.logger.Debug("push dispatch failed", zap.String("topic", n.Topic), zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
