// Package app boots the shared infrastructure every command needs and runs
// the long-lived server processes.
//
//	infra, err := app.Boot(ctx)
//	defer infra.Close()
//	return infra.Serve(ctx, handler)
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/cache"
	"github.com/mmsi/orderdesk/pkg/database"
	"github.com/mmsi/orderdesk/pkg/event"
	grpcsrv "github.com/mmsi/orderdesk/pkg/grpc"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/queue"
	"github.com/mmsi/orderdesk/pkg/schedule"
	"github.com/mmsi/orderdesk/pkg/storage"
	"github.com/mmsi/orderdesk/pkg/workerpool"
	"github.com/mmsi/orderdesk/pkg/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RelayChannel is the Redis pub/sub channel carrying order.updated frames
// between instances.
const RelayChannel = "mmsi:orders"

// Infra is the process-wide set of connections and background machinery.
type Infra struct {
	DB        *gorm.DB
	Cache     cache.Store
	Redis     *redis.Client // nil without REDIS_ADDR
	Pool      *workerpool.Pool
	Bus       *event.Bus
	Hub       *ws.Hub
	Relay     *ws.Relay // nil without Redis
	Queue     *queue.Manager
	Storage   *storage.Manager
	Scheduler *schedule.Scheduler

	closers []func()
}

// Boot loads config and opens every connection. Redis and S3 are optional:
// when they are missing or unreachable the in-process fallbacks are used.
func Boot(ctx context.Context) (*Infra, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	i := &Infra{}

	if uri := config.LogMongoURI(); uri != "" {
		closeLog, err := logger.AttachMongo(uri, config.LogMongoDB())
		if err != nil {
			logger.Warn("logger: mongo sink disabled", "error", err)
		}
		i.closers = append(i.closers, closeLog)
	}

	if err := database.Connect(); err != nil {
		return nil, err
	}
	i.DB = database.DB

	store, rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("cache: falling back to memory", "error", err)
	}
	i.Cache, i.Redis = store, rdb
	if rdb != nil {
		i.closers = append(i.closers, func() { _ = rdb.Close() })
	}

	i.Pool = workerpool.New(config.BroadcastWorkers(),
		workerpool.WithQueue(256),
		workerpool.WithPanicHandler(func(v any) { logger.Error("workerpool: task panicked", "panic", v) }),
	)
	i.Bus = event.NewBus(i.Pool)

	i.Hub = ws.NewHub()
	ws.AllowOrigins(config.CORSAllowedOrigins())
	if rdb != nil {
		i.Relay = ws.NewRelay(rdb, RelayChannel, i.Hub)
	}

	var driver queue.Driver = queue.NewMemoryDriver()
	if config.QueueDriver() == "redis" {
		if rdb == nil {
			logger.Warn("queue: QUEUE_DRIVER=redis without Redis, using memory")
		} else {
			driver = queue.NewRedisDriver(rdb)
		}
	}
	i.Queue = queue.New(driver, i.DB)

	if i.Storage, err = storage.Connect(ctx); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	i.Scheduler = schedule.New()

	for _, c := range grpcsrv.Collectors() {
		var are prometheus.AlreadyRegisteredError
		if err := metrics.Registry.Register(c); err != nil && !errors.As(err, &are) {
			return nil, err
		}
	}
	return i, nil
}

// Broadcast fans a frame out to every instance through the relay, or to
// the local hub when running alone.
func (i *Infra) Broadcast(ctx context.Context, frame []byte) error {
	if i.Relay != nil {
		return i.Relay.Broadcast(ctx, frame)
	}
	return i.Hub.Broadcast(frame)
}

// Ping reports database health.
func (i *Infra) Ping(ctx context.Context) error {
	sqlDB, err := i.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close drains the worker pool and releases connections.
func (i *Infra) Close() {
	if i.Pool != nil {
		i.Pool.Shutdown()
	}
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
	if i.DB != nil {
		if sqlDB, err := i.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
