package app

import (
	"net/http"
	"time"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/middleware"
	"github.com/mmsi/orderdesk/pkg/reqid"
	"github.com/mmsi/orderdesk/pkg/router"
)

// NewRouter returns a router carrying the global middleware stack, outermost
// first: metrics, recovery, request id, logger, CORS, rate limit. /metrics
// is mounted before register runs.
func NewRouter(register func(*router.Router)) *router.Router {
	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions(config.CORSAllowedOrigins())),
		middleware.RateLimit(200, time.Minute),
	)
	r.Handle("/metrics", "metrics", metrics.Handler())
	register(r)
	return r
}

// Handler is NewRouter's http.Handler.
func Handler(register func(*router.Router)) http.Handler {
	return NewRouter(register).Handler()
}
