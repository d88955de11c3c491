// Package event is an in-process publish/subscribe bus. Publish hands each
// listener to a bounded worker pool and returns at once; delivery is
// at-most-once and listener failures never reach the publisher.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/workerpool"
)

type Listener func(ctx context.Context, payload any) error

type registration struct {
	name string
	fn   Listener
}

type Bus struct {
	pool *workerpool.Pool

	mu        sync.RWMutex
	listeners map[string][]registration
}

// NewBus dispatches onto pool. A nil pool makes Publish synchronous.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{pool: pool, listeners: make(map[string][]registration)}
}

// Listen registers fn under a name used in logs.
func (b *Bus) Listen(event, name string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], registration{name: name, fn: fn})
}

func (b *Bus) snapshot(event string) []registration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]registration(nil), b.listeners[event]...)
}

// Publish schedules every listener of event and reports how many were
// accepted by the pool. The listener context survives cancellation of ctx.
func (b *Bus) Publish(ctx context.Context, event string, payload any) int {
	detached := context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx)
	accepted := 0

	for _, reg := range b.snapshot(event) {
		reg := reg
		task := func() { b.run(detached, event, reg, payload) }

		if b.pool == nil {
			task()
			accepted++
			continue
		}
		if err := b.pool.Submit(task); err != nil {
			reason := "pool_full"
			if errors.Is(err, workerpool.ErrPoolClosed) {
				reason = "pool_closed"
			}
			metrics.NotificationsDropped.WithLabelValues(reason).Inc()
			log.Warn("event: dropped", "event", event, "listener", reg.name, "error", err)
			continue
		}
		accepted++
	}
	return accepted
}

// Dispatch runs every listener inline and joins their errors.
func (b *Bus) Dispatch(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, reg := range b.snapshot(event) {
		if err := reg.fn(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reg.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) run(ctx context.Context, event string, reg registration, payload any) {
	defer func() {
		if v := recover(); v != nil {
			metrics.NotificationsDropped.WithLabelValues("listener_error").Inc()
			logger.WithCtx(ctx).Warn("event: listener panicked", "event", event, "listener", reg.name, "panic", fmt.Sprint(v))
		}
	}()
	if err := reg.fn(ctx, payload); err != nil {
		metrics.NotificationsDropped.WithLabelValues("listener_error").Inc()
		logger.WithCtx(ctx).Warn("event: listener failed", "event", event, "listener", reg.name, "error", err)
	}
}
