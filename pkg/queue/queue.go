// Package queue runs background jobs pushed through a Driver (memory or
// Redis). Jobs are JSON-encoded with a registered type name; a job that
// still fails after MaxAttempts is written to the failed_jobs table.
//
//	m := queue.New(queue.NewMemoryDriver(), db)
//	m.Register("export.archive", func() queue.Job { return &ArchiveJob{} })
//	m.Dispatch(ctx, &ArchiveJob{Kind: "orders"})
//	m.Work(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"gorm.io/gorm"
)

type Job interface {
	JobName() string
	Handle(ctx context.Context) error
}

type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available. A nil payload with nil
	// error means the wait timed out.
	Pop(ctx context.Context) ([]byte, error)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Queued  time.Time       `json:"queued_at"`
}

type Manager struct {
	driver      Driver
	db          *gorm.DB
	MaxAttempts int
	Backoff     func(attempt int) time.Duration

	mu       sync.RWMutex
	registry map[string]func() Job
}

// New creates a manager. db may be nil, in which case exhausted jobs are
// only logged.
func New(driver Driver, db *gorm.DB) *Manager {
	return &Manager{
		driver:      driver,
		db:          db,
		MaxAttempts: 3,
		Backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		registry:    make(map[string]func() Job),
	}
}

// Register maps a job name to a constructor used when decoding.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal %s: %w", job.JobName(), err)
	}
	raw, err := json.Marshal(envelope{Type: job.JobName(), Payload: payload, Queued: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return m.driver.Push(ctx, raw)
}

// Work runs n workers until ctx ends and blocks until they return.
func (m *Manager) Work(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	logger.Info("queue: workers started", "count", n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.loop(ctx)
		}()
	}
	wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw != nil {
			m.Process(ctx, raw)
		}
	}
}

// Process decodes and runs one payload, retrying with backoff.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.persistFailed(env, fmt.Errorf("unregistered job type"), 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: decode payload", "type", env.Type, "error", err)
		m.persistFailed(env, err, 0)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= m.MaxAttempts; attempt++ {
		if lastErr = job.Handle(ctx); lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success")
			logger.Info("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < m.MaxAttempts {
			sleep(ctx, m.Backoff(attempt))
		}
	}

	metrics.RecordQueueJob(env.Type, "failed")
	m.persistFailed(env, lastErr, m.MaxAttempts)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
