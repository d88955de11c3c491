// Package routes maps URLs onto controllers. Every route past login runs
// behind authentication and a per-action rbac check.
package routes

import (
	"net/http"
	"time"

	"github.com/mmsi/orderdesk/app/controllers"
	"github.com/mmsi/orderdesk/pkg/ctx"
	"github.com/mmsi/orderdesk/pkg/middleware"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/mmsi/orderdesk/pkg/router"
)

type Controllers struct {
	Auth     *controllers.AuthController
	Admin    *controllers.AdminController
	Activity *controllers.ActivityController
	Order    *controllers.OrderController
	Nominee  *controllers.NomineeController
	Recheck  *controllers.RecheckController
	System   *controllers.SystemController
	Stream   *controllers.StreamController
	GraphQL  http.Handler
}

var allow = rbac.Allow

func Register(r *router.Router, c Controllers, authenticate router.Middleware) {
	w := ctx.Wrap

	r.Get("/health", "health", w(c.System.Health))
	r.Get("/ws/orders", "stream.ws", c.Stream.WebSocket, authenticate, allow(rbac.SubscribeOrders))

	api := r.Group("/api")
	api.Post("/login", "auth.login", w(c.Auth.Login), middleware.RateLimit(5, time.Minute))

	p := api.Group("", authenticate)
	p.Get("/user", "auth.me", w(c.Auth.Me))
	p.Post("/logout", "auth.logout", w(c.Auth.Logout))
	p.Post("/verify-pin", "auth.verify_pin", w(c.Auth.VerifyPin))
	p.Get("/redirect-dashboard", "auth.dashboard", w(c.Auth.RedirectDashboard), allow(rbac.ViewDashboardInfo))

	admin := p.Group("/admin")
	admin.Post("/register-user", "admin.users.register", w(c.Admin.RegisterUser), allow(rbac.RegisterUser))
	admin.Get("/users", "admin.users.index", w(c.Admin.Users), allow(rbac.ListUsers))
	admin.Post("/toggle-user/{id}", "admin.users.toggle", w(c.Admin.ToggleUser), allow(rbac.ToggleUser))
	admin.Get("/nominees", "admin.nominees", w(c.Admin.Nominees), allow(rbac.ListNominees))
	admin.Get("/nominee-instructions", "admin.instructions", w(c.Admin.NomineeInstructions), allow(rbac.MonitorAll))
	admin.Get("/activity-log", "admin.activity.index", w(c.Activity.Index), allow(rbac.ViewAllActivity))
	admin.Get("/activity-log/export", "admin.activity.export", w(c.Activity.Export), allow(rbac.ExportActivity))
	admin.Post("/exports/{kind}/archive", "admin.exports.archive", w(c.Admin.ArchiveExport), allow(rbac.ArchiveExport))

	strategist := p.Group("/strategist")
	strategist.Get("/nominees", "strategist.nominees", w(c.Admin.Nominees), allow(rbac.ListNominees))
	strategist.Get("/orders", "strategist.orders.index", w(c.Order.Index), allow(rbac.ListOwnOrders))
	strategist.Post("/orders", "strategist.orders.store", w(c.Order.Store), allow(rbac.CreateOrder))
	strategist.Get("/orders/export", "strategist.orders.export", w(c.Order.Export), allow(rbac.ExportOrders))
	strategist.Get("/monitor-execution", "strategist.monitor", w(c.Order.MonitorExecution), allow(rbac.MonitorExecution))
	strategist.Get("/monitor-execution/export", "strategist.monitor.export", w(c.Order.ExportExecutions), allow(rbac.ExportOrders))
	strategist.Get("/statistics/execution-trend", "strategist.trend", w(c.Order.ExecutionTrend), allow(rbac.MonitorExecution))
	strategist.Get("/activity-log", "strategist.activity", w(c.Activity.Index), allow(rbac.ViewOwnActivity))

	nominee := p.Group("/nominee")
	nominee.Get("/instructions", "nominee.instructions", w(c.Nominee.Instructions), allow(rbac.ListInstructions))
	nominee.Post("/execute/{id}", "nominee.execute", w(c.Nominee.Execute), allow(rbac.ExecuteBreakdown))
	nominee.Get("/activity-log", "nominee.activity", w(c.Activity.Index), allow(rbac.ViewOwnActivity))

	p.Get("/recheck", "recheck.index", w(c.Recheck.Index), allow(rbac.ListRechecks))
	p.Post("/recheck", "recheck.store", w(c.Recheck.Store), allow(rbac.SubmitRecheck))
	p.Put("/recheck/{id}", "recheck.update", w(c.Recheck.Update), allow(rbac.UpdateRecheck))
	p.Delete("/recheck/{id}", "recheck.destroy", w(c.Recheck.Destroy), allow(rbac.DeleteRecheck))
	p.Post("/recheck/{id}/verify", "recheck.verify", w(c.Recheck.Verify), allow(rbac.VerifyRecheck))
	p.Get("/recheck-summary", "recheck.summary", w(c.Recheck.Summary), allow(rbac.SummarizeRecheck))
	p.Get("/recheck-export", "recheck.export", w(c.Recheck.Export), allow(rbac.ExportRechecks))

	p.Get("/system/auto-recheck", "system.auto_recheck", w(c.Recheck.AutoRecheck), allow(rbac.SubmitRecheck))
	p.Get("/system/auto-deactivate", "system.auto_deactivate", w(c.System.AutoDeactivate), allow(rbac.DeactivateIdle))

	p.Post("/graphql", "graphql", c.GraphQL.ServeHTTP)
	p.Get("/stream/orders", "stream.sse", c.Stream.Events, allow(rbac.SubscribeOrders))
}
