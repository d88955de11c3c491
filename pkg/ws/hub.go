// Package ws fans broadcast messages out to connected subscribers. A
// subscriber is either a WebSocket client (Upgrade) or any reader of a
// Subscription, such as an SSE stream.
package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
)

const subscriberBuffer = 64

var (
	ErrHubBusy    = errors.New("ws: broadcast buffer full")
	ErrHubStopped = errors.New("ws: hub stopped")
)

type Hub struct {
	broadcast  chan []byte
	register   chan *Subscription
	unregister chan *Subscription
	done       chan struct{}
	stopOnce   sync.Once

	subs  map[*Subscription]struct{}
	count atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		done:       make(chan struct{}),
		subs:       make(map[*Subscription]struct{}),
	}
}

// Subscription receives every broadcast made after it was registered.
type Subscription struct {
	hub  *Hub
	ch   chan []byte
	once sync.Once
}

func (s *Subscription) Messages() <-chan []byte { return s.ch }

// Close unregisters s. The Messages channel is closed by the hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Subscribe registers a new subscriber. Run must be active.
func (h *Hub) Subscribe() (*Subscription, error) {
	s := &Subscription{hub: h, ch: make(chan []byte, subscriberBuffer)}
	select {
	case h.register <- s:
		return s, nil
	case <-h.done:
		return nil, ErrHubStopped
	}
}

// Broadcast queues msg for every subscriber without blocking.
func (h *Hub) Broadcast(msg []byte) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- msg:
		return nil
	default:
		return ErrHubBusy
	}
}

func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Run owns the subscriber set until ctx ends, then closes every
// subscription.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	defer func() {
		for s := range h.subs {
			h.drop(s)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			h.subs[s] = struct{}{}
			h.count.Add(1)
			metrics.StreamClients.Inc()
		case s := <-h.unregister:
			if _, ok := h.subs[s]; ok {
				h.drop(s)
			}
		case msg := <-h.broadcast:
			for s := range h.subs {
				select {
				case s.ch <- msg:
				default:
					// A subscriber that cannot keep up is disconnected
					// rather than allowed to stall the others.
					metrics.NotificationsDropped.WithLabelValues("slow_client").Inc()
					logger.Warn("ws: dropping slow subscriber")
					h.drop(s)
				}
			}
		}
	}
}

func (h *Hub) drop(s *Subscription) {
	delete(h.subs, s)
	close(s.ch)
	h.count.Add(-1)
	metrics.StreamClients.Dec()
}
