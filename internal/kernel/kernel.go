// Package kernel assembles the order desk: services over the shared
// infrastructure, the order.updated listener, the archive job, the
// inactivity sweep and the HTTP routes.
package kernel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmsi/orderdesk/app/controllers"
	"github.com/mmsi/orderdesk/app/events"
	"github.com/mmsi/orderdesk/app/jobs"
	"github.com/mmsi/orderdesk/app/queries"
	"github.com/mmsi/orderdesk/app/routes"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/app"
	"github.com/mmsi/orderdesk/pkg/auth"
	gql "github.com/mmsi/orderdesk/pkg/graphql"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/middleware"
	"github.com/mmsi/orderdesk/pkg/router"
)

// SweepTask is the scheduler name of the inactivity sweep.
const SweepTask = "users:deactivate-inactive"

type Services struct {
	Activity   *services.ActivityService
	Auth       *services.AuthService
	Users      *services.UserService
	Orders     *services.OrderService
	Executions *services.ExecutionService
	Rechecks   *services.RecheckService
	Exports    *services.ExportService
}

type Kernel struct {
	Infra    *app.Infra
	Services Services
	Archiver *jobs.Archiver
}

// New wires services onto infra and registers listeners, jobs and
// scheduled tasks.
func New(infra *app.Infra) (*Kernel, error) {
	db := infra.DB
	audit := services.NewActivityService(db)
	authSvc := services.NewAuthService(db, audit, infra.Cache)
	svc := Services{
		Activity:   audit,
		Auth:       authSvc,
		Users:      services.NewUserService(db, audit, infra.Cache),
		Orders:     services.NewOrderService(db, authSvc, audit, infra.Bus),
		Executions: services.NewExecutionService(db, audit, infra.Bus),
		Rechecks:   services.NewRecheckService(db, authSvc, audit),
		Exports:    services.NewExportService(db),
	}

	events.Register(infra.Bus, infra.Broadcast)
	archiver := jobs.Register(infra.Queue, svc.Exports, infra.Storage.Default())

	err := infra.Scheduler.Cron(config.SweepCron()).
		Name(SweepTask).
		WithoutOverlapping().
		Run(func(ctx context.Context) error {
			n, err := svc.Users.DeactivateInactive(ctx, auth.Identity{})
			if err == nil {
				logger.Info("sweep: inactive users deactivated", "count", n)
			}
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("kernel: schedule sweep: %w", err)
	}

	return &Kernel{Infra: infra, Services: svc, Archiver: archiver}, nil
}

// Routes registers every HTTP endpoint on r.
func (k *Kernel) Routes(r *router.Router) {
	schema, err := queries.Schema(queries.Services{
		Orders:     k.Services.Orders,
		Executions: k.Services.Executions,
		Rechecks:   k.Services.Rechecks,
	})
	if err != nil {
		// The schema is static; a build failure is a programming error.
		panic(fmt.Sprintf("kernel: graphql schema: %v", err))
	}

	s := k.Services
	routes.Register(r, routes.Controllers{
		Auth:     controllers.NewAuthController(s.Auth),
		Admin:    controllers.NewAdminController(s.Users, s.Executions, k.Archiver),
		Activity: controllers.NewActivityController(s.Activity, s.Exports),
		Order:    controllers.NewOrderController(s.Orders, s.Exports),
		Nominee:  controllers.NewNomineeController(s.Executions),
		Recheck:  controllers.NewRecheckController(s.Rechecks, s.Exports),
		System:   controllers.NewSystemController(s.Users, k.Infra.Ping),
		Stream:   controllers.NewStreamController(k.Infra.Hub),
		GraphQL:  gql.Handler(schema),
	}, middleware.Authenticate(s.Auth))
}

// Handler is the full HTTP stack.
func (k *Kernel) Handler() http.Handler {
	return app.Handler(k.Routes)
}
