package controllers

import (
	"net/http"
	"time"

	"github.com/mmsi/orderdesk/app/events"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/sse"
	"github.com/mmsi/orderdesk/pkg/ws"
)

const heartbeat = 25 * time.Second

// StreamController exposes the order.updated feed over WebSocket and SSE.
type StreamController struct {
	hub *ws.Hub
}

func NewStreamController(hub *ws.Hub) *StreamController {
	return &StreamController{hub: hub}
}

func (s *StreamController) WebSocket(w http.ResponseWriter, r *http.Request) {
	ws.Upgrade(w, r, s.hub)
}

func (s *StreamController) Events(w http.ResponseWriter, r *http.Request) {
	sub, err := s.hub.Subscribe()
	if err != nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	stream, err := sse.New(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := stream.Pipe(r.Context(), events.OrderUpdated, sub.Messages(), heartbeat); err != nil {
		logger.WithCtx(r.Context()).Debug("sse: client gone", "error", err)
	}
}
