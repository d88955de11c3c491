// Package sse writes Server-Sent Events to one client.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnsupported = errors.New("sse: response writer cannot flush")

type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// New sets the event-stream headers. It fails when w cannot flush.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, r: r, flusher: flusher}, nil
}

// Send writes a named event with a JSON data line.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	return s.SendRaw(event, payload)
}

// SendRaw writes a named event whose data is already encoded on one line.
func (s *Stream) SendRaw(event string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keepalive line that clients ignore.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Stream) Done() <-chan struct{} { return s.r.Context().Done() }

// Pipe forwards msgs as events until the client leaves, msgs closes or
// ctx ends, sending a heartbeat comment every interval.
func (s *Stream) Pipe(ctx context.Context, event string, msgs <-chan []byte, heartbeat time.Duration) error {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := s.SendRaw(event, m); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.Comment("ping"); err != nil {
				return err
			}
		}
	}
}
