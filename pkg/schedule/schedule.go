// Package schedule runs named tasks on cron expressions or fixed
// intervals.
//
//	s := schedule.New()
//	s.Cron("0 0 * * *").Name("users:deactivate-inactive").WithoutOverlapping().Run(sweep)
//	s.Every(5 * time.Minute).Name("heartbeat").Run(ping)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

type entry struct {
	name      string
	spec      string
	sched     cron.Schedule
	task      Task
	noOverlap bool

	mu      sync.Mutex
	next    time.Time
	running bool
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	now     func() time.Time
	wg      sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{now: time.Now}
}

// Builder configures one entry until Run registers it.
type Builder struct {
	s   *Scheduler
	e   *entry
	err error
}

// Cron parses a standard five-field expression (or a descriptor such as
// @daily).
func (s *Scheduler) Cron(spec string) *Builder {
	sched, err := cron.ParseStandard(spec)
	return &Builder{s: s, e: &entry{spec: spec, sched: sched}, err: err}
}

func (s *Scheduler) Every(d time.Duration) *Builder {
	return &Builder{s: s, e: &entry{spec: "@every " + d.String(), sched: cron.Every(d)}}
}

// Daily runs at midnight local time.
func (s *Scheduler) Daily() *Builder { return s.Cron("0 0 * * *") }

func (b *Builder) Name(name string) *Builder {
	b.e.name = name
	return b
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Run registers the task. It fails only for an unparsable expression.
func (b *Builder) Run(task Task) error {
	if b.err != nil {
		return fmt.Errorf("schedule: %q: %w", b.e.spec, b.err)
	}
	b.e.task = task
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.name == "" {
		b.e.name = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.e.next = b.e.sched.Next(b.s.now())
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start ticks every second until ctx ends, then waits for running tasks.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("schedule: started", "tasks", len(s.List()))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx, s.now())
		}
	}
}

// RunDue dispatches every entry whose next time is at or before now and
// returns how many started.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	started := 0
	for _, e := range current {
		e.mu.Lock()
		due := !now.Before(e.next)
		if due {
			e.next = e.sched.Next(now)
		}
		skip := due && e.noOverlap && e.running
		if due && !skip {
			e.running = true
		}
		e.mu.Unlock()

		if skip {
			logger.Warn("schedule: skipping overlapping run", "task", e.name)
			continue
		}
		if due {
			started++
			s.dispatch(ctx, e)
		}
	}
	return started
}

// RunNow executes the named task synchronously, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.name == name {
			return e.task(ctx)
		}
	}
	return fmt.Errorf("schedule: no task named %q", name)
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "task", e.name, "panic", fmt.Sprint(r))
			}
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "task", e.name, "error", err)
			return
		}
		logger.Info("schedule: task done", "task", e.name, "duration", time.Since(start).String())
	}()
}

// Wait blocks until dispatched tasks finish.
func (s *Scheduler) Wait() { s.wg.Wait() }

// List describes registered entries for the CLI.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [%s]  next %s", e.name, e.spec, e.next.Format(time.RFC3339)))
	}
	return out
}
