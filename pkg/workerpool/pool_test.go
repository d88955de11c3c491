package workerpool_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmsi/orderdesk/pkg/workerpool"
)

func TestPool_SubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Shutdown()

	const n = 50
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		if err := pool.SubmitWait(func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("SubmitWait: %v", err)
		}
	}
	wg.Wait()

	if got := count.Load(); got != n {
		t.Errorf("expected %d tasks, got %d", n, got)
	}
}

func TestPool_FullQueueSheds(t *testing.T) {
	pool := workerpool.New(1, workerpool.WithQueue(1))
	defer pool.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = pool.SubmitWait(func() {
		close(started)
		<-release
	})
	<-started

	if err := pool.Submit(func() {}); err != nil {
		t.Fatalf("queue slot should be free: %v", err)
	}
	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolFull) {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}
	close(release)
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	var recovered atomic.Value
	pool := workerpool.New(1, workerpool.WithPanicHandler(func(v any) { recovered.Store(v) }))
	defer pool.Shutdown()

	_ = pool.SubmitWait(func() { panic("listener exploded") })

	done := make(chan struct{})
	_ = pool.SubmitWait(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	if recovered.Load() != "listener exploded" {
		t.Errorf("panic handler not called, got %v", recovered.Load())
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()
	pool.Shutdown()

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := workerpool.New(1, workerpool.WithQueue(8))
	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		_ = pool.Submit(func() {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		})
	}
	pool.Shutdown()
	if ran.Load() != 5 {
		t.Errorf("expected 5 drained tasks, got %d", ran.Load())
	}
}
