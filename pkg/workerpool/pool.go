// Package workerpool is a bounded goroutine pool with backpressure.
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    // shed the task
//	}
package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

type Option func(*Pool)

// WithQueue sets how many tasks may wait for a worker. Default 2×size.
func WithQueue(n int) Option {
	return func(p *Pool) { p.queue = n }
}

// WithPanicHandler receives the value of any task panic. Workers survive
// panics either way.
func WithPanicHandler(fn func(any)) Option {
	return func(p *Pool) { p.onPanic = fn }
}

type Pool struct {
	tasks   chan func()
	queue   int
	onPanic func(any)

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	running atomic.Int64
}

func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{queue: size * 2}
	for _, o := range opts {
		o(p)
	}
	p.tasks = make(chan func(), p.queue)

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Running reports tasks currently executing.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Shutdown stops intake and waits for queued tasks to finish. Idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if v := recover(); v != nil && p.onPanic != nil {
			p.onPanic(v)
		}
	}()
	task()
}
