package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/event"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() models.Order {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	return models.Order{
		ID: "o1", Stock: "BBCA", Price: decimal.NewFromInt(8500), Lots: 3,
		OrderType: models.OrderTypeBuy, Status: models.OrderStatusNew,
		Breakdowns: []models.OrderBreakdown{
			{ID: "b1", Nominee: &models.User{Name: "Nominee One"}, Stock: "BBCA", Lots: 2, Status: models.BreakdownExecuted, ExecutionTime: &at},
			{ID: "b2", Stock: "BBCA", Lots: 1, Status: models.BreakdownWaiting},
		},
	}
}

func TestSnapshot(t *testing.T) {
	s := Snapshot(sampleOrder())
	require.Len(t, s.Breakdowns, 2)
	assert.Equal(t, "Nominee One", s.Breakdowns[0].Nominee)
	assert.Equal(t, "-", s.Breakdowns[1].Nominee)
	assert.NotNil(t, s.Breakdowns[0].ExecutedAt)
	assert.Nil(t, s.Breakdowns[1].ExecutedAt)
}

func TestRegisterEncodesFrame(t *testing.T) {
	bus := event.NewBus(nil)
	var got []byte
	Register(bus, func(_ context.Context, frame []byte) error {
		got = frame
		return nil
	})

	require.NoError(t, bus.Dispatch(context.Background(), OrderUpdated, Snapshot(sampleOrder())))

	var msg struct {
		Topic string `json:"topic"`
		Event string `json:"event"`
		Data  struct {
			ID         string           `json:"id"`
			OrderType  string           `json:"order_type"`
			Breakdowns []map[string]any `json:"breakdowns"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got, &msg))
	assert.Equal(t, Topic, msg.Topic)
	assert.Equal(t, OrderUpdated, msg.Event)
	assert.Equal(t, "Buy", msg.Data.OrderType)
	assert.Len(t, msg.Data.Breakdowns, 2)
	assert.Contains(t, msg.Data.Breakdowns[0], "executed_at")
}

func TestRegisterRejectsWrongPayload(t *testing.T) {
	bus := event.NewBus(nil)
	Register(bus, func(context.Context, []byte) error { return nil })
	assert.Error(t, bus.Dispatch(context.Background(), OrderUpdated, "nope"))
}

func TestSinkErrorSurfacesOnDispatch(t *testing.T) {
	bus := event.NewBus(nil)
	Register(bus, func(context.Context, []byte) error { return errors.New("hub busy") })
	assert.ErrorContains(t, bus.Dispatch(context.Background(), OrderUpdated, Snapshot(sampleOrder())), "hub busy")
}
