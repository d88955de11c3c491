package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/internal/server"
	grpcsrv "github.com/mmsi/orderdesk/pkg/grpc"
	"github.com/mmsi/orderdesk/pkg/logger"
)

// Serve runs the HTTP server with the hub, relay, scheduler, queue workers
// and the optional gRPC health server beside it. It returns when ctx ends
// and everything has stopped.
func (i *Infra) Serve(ctx context.Context, h http.Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error("app: component stopped", "component", name, "error", err)
			}
		}()
	}

	spawn("hub", func(ctx context.Context) error { i.Hub.Run(ctx); return nil })
	if i.Relay != nil {
		spawn("relay", i.Relay.Run)
	}
	spawn("scheduler", func(ctx context.Context) error { i.Scheduler.Start(ctx); return nil })
	spawn("queue", func(ctx context.Context) error { i.Queue.Work(ctx, config.QueueWorkers()); return nil })

	if port := config.GRPCPort(); port != "" {
		gs, err := grpcsrv.New(":"+port, i.Ping, 15*time.Second)
		if err != nil {
			return err
		}
		spawn("grpc", gs.Serve)
	}

	err := server.Run(ctx, ":"+config.AppPort(), h)
	cancel()
	wg.Wait()
	return err
}
