// Package rbac maps each (role, action) pair to allow or deny. Route
// middleware and services consult the same table.
package rbac

import (
	"errors"
	"net/http"

	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/response"
)

type Action string

const (
	CreateOrder       Action = "order.create"
	ListOwnOrders     Action = "order.list_own"
	MonitorExecution  Action = "execution.monitor_own"
	ExportOrders      Action = "order.export"
	ListInstructions  Action = "instruction.list"
	ExecuteBreakdown  Action = "breakdown.execute"
	MonitorAll        Action = "instruction.monitor_all"
	RegisterUser      Action = "user.register"
	ListUsers         Action = "user.list"
	ToggleUser        Action = "user.toggle"
	ListNominees      Action = "nominee.list"
	ViewAllActivity   Action = "activity.list_all"
	ViewOwnActivity   Action = "activity.list_own"
	ExportActivity    Action = "activity.export"
	SubmitRecheck     Action = "recheck.submit"
	ListRechecks      Action = "recheck.list"
	UpdateRecheck     Action = "recheck.update"
	DeleteRecheck     Action = "recheck.delete"
	VerifyRecheck     Action = "recheck.verify"
	SummarizeRecheck  Action = "recheck.summary"
	ExportRechecks    Action = "recheck.export"
	DeactivateIdle    Action = "system.deactivate"
	ArchiveExport     Action = "export.archive"
	SubscribeOrders   Action = "stream.orders"
	ViewDashboardInfo Action = "dashboard.view"
)

var ErrForbidden = errors.New("forbidden")

var (
	admin      = auth.RoleAdmin
	strategist = auth.RoleStrategist
	nominee    = auth.RoleNominee
)

var policy = map[Action][]string{
	CreateOrder:       {strategist},
	ListOwnOrders:     {strategist},
	MonitorExecution:  {strategist},
	ExportOrders:      {strategist},
	ListInstructions:  {nominee},
	ExecuteBreakdown:  {nominee},
	MonitorAll:        {admin},
	RegisterUser:      {admin},
	ListUsers:         {admin},
	ToggleUser:        {admin},
	ListNominees:      {admin, strategist},
	ViewAllActivity:   {admin},
	ViewOwnActivity:   {admin, strategist, nominee},
	ExportActivity:    {admin},
	SubmitRecheck:     {admin, nominee},
	ListRechecks:      {admin, nominee},
	UpdateRecheck:     {admin, nominee},
	DeleteRecheck:     {admin, nominee},
	VerifyRecheck:     {admin},
	SummarizeRecheck:  {admin, strategist, nominee},
	ExportRechecks:    {admin},
	DeactivateIdle:    {admin},
	ArchiveExport:     {admin},
	SubscribeOrders:   {admin, strategist, nominee},
	ViewDashboardInfo: {admin, strategist, nominee},
}

// Can reports whether role may perform action. Unknown actions are denied.
func Can(role string, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden unless id may perform action.
func Authorize(id auth.Identity, action Action) error {
	if !Can(id.Role, action) {
		return ErrForbidden
	}
	return nil
}

// Allow is route middleware over Can. It must run after Authenticate.
func Allow(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !Can(id.Role, action) {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Actions lists every action the policy knows about, for route:list and tests.
func Actions() []Action {
	out := make([]Action, 0, len(policy))
	for a := range policy {
		out = append(out, a)
	}
	return out
}
