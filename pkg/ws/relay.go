package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	relayMinBackoff = 500 * time.Millisecond
	relayMaxBackoff = 30 * time.Second
)

var errSubscriptionClosed = errors.New("ws: relay subscription closed")

// Relay carries broadcasts between instances over a Redis pub/sub
// channel: Publish sends to Redis and Run feeds everything received back
// into the local hub, so each instance's subscribers see every message.
type Relay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub

	subscribed atomic.Bool
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRelay(rdb *redis.Client, channel string, hub *Hub) *Relay {
	return &Relay{rdb: rdb, channel: channel, hub: hub, minBackoff: relayMinBackoff, maxBackoff: relayMaxBackoff}
}

func (r *Relay) Publish(ctx context.Context, msg []byte) error {
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

// Subscribed reports whether Run currently holds a live subscription.
func (r *Relay) Subscribed() bool { return r.subscribed.Load() }

// Broadcast goes through Redis while subscribed. Otherwise, or when the
// publish fails, msg is handed to the local hub directly.
func (r *Relay) Broadcast(ctx context.Context, msg []byte) error {
	if r.Subscribed() {
		err := r.Publish(ctx, msg)
		if err == nil {
			return nil
		}
		logger.Warn("ws: relay publish failed, delivering locally", "channel", r.channel, "error", err)
	}
	return r.hub.Broadcast(msg)
}

// Run blocks until ctx ends, resubscribing with backoff whenever the
// subscription cannot be made or is lost.
func (r *Relay) Run(ctx context.Context) error {
	delay := r.minBackoff
	for {
		wasUp, err := r.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if wasUp {
			delay = r.minBackoff
		}
		logger.Warn("ws: relay not subscribed", "channel", r.channel, "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > r.maxBackoff {
			delay = r.maxBackoff
		}
	}
}

// listen holds one subscription; wasUp reports whether it got past the
// initial handshake.
func (r *Relay) listen(ctx context.Context) (wasUp bool, err error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, err
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	logger.Info("ws: relay subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			if err := r.hub.Broadcast([]byte(m.Payload)); err != nil {
				logger.Warn("ws: relay broadcast failed", "error", err)
			}
		}
	}
}
