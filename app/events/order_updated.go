// Package events defines the order.updated notification and the listener
// that pushes it to stream subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/event"
	"github.com/shopspring/decimal"
)

const (
	OrderUpdated = "order.updated"

	// Topic is the single channel every order snapshot is published on.
	Topic = "orders"
)

type BreakdownSnapshot struct {
	ID         string          `json:"id"`
	Nominee    string          `json:"nominee"`
	Stock      string          `json:"stock"`
	Price      decimal.Decimal `json:"price"`
	Lots       int             `json:"lots"`
	Status     string          `json:"status"`
	ExecutedAt *time.Time      `json:"executed_at"`
}

type OrderSnapshot struct {
	ID         string              `json:"id"`
	Stock      string              `json:"stock"`
	Price      decimal.Decimal     `json:"price"`
	Lots       int                 `json:"lots"`
	OrderType  string              `json:"order_type"`
	Status     string              `json:"status"`
	Breakdowns []BreakdownSnapshot `json:"breakdowns"`
}

// Snapshot copies o and its breakdowns; nominees should be preloaded.
func Snapshot(o models.Order) OrderSnapshot {
	s := OrderSnapshot{
		ID:         o.ID,
		Stock:      o.Stock,
		Price:      o.Price,
		Lots:       o.Lots,
		OrderType:  o.OrderType,
		Status:     o.Status,
		Breakdowns: make([]BreakdownSnapshot, len(o.Breakdowns)),
	}
	for i, b := range o.Breakdowns {
		s.Breakdowns[i] = BreakdownSnapshot{
			ID:         b.ID,
			Nominee:    b.NomineeName(),
			Stock:      b.Stock,
			Price:      b.Price,
			Lots:       b.Lots,
			Status:     b.Status,
			ExecutedAt: b.ExecutionTime,
		}
	}
	return s
}

// Message is the wire frame sent to WebSocket and SSE clients.
type Message struct {
	Topic string        `json:"topic"`
	Event string        `json:"event"`
	Data  OrderSnapshot `json:"data"`
}

// Sink delivers an encoded frame: the local hub, or the Redis relay when
// instances share one channel.
type Sink func(ctx context.Context, frame []byte) error

// Register subscribes the stream broadcaster to order.updated.
func Register(bus *event.Bus, sink Sink) {
	bus.Listen(OrderUpdated, "stream.broadcast", func(ctx context.Context, payload any) error {
		snap, ok := payload.(OrderSnapshot)
		if !ok {
			return fmt.Errorf("events: unexpected %s payload %T", OrderUpdated, payload)
		}
		frame, err := json.Marshal(Message{Topic: Topic, Event: OrderUpdated, Data: snap})
		if err != nil {
			return err
		}
		return sink(ctx, frame)
	})
}
