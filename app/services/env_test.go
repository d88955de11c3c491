package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/mmsi/orderdesk/app/events"
	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/mmsi/orderdesk/pkg/cache"
	"gorm.io/gorm"
)

// published records order.updated snapshots instead of broadcasting them.
type published struct {
	mu        sync.Mutex
	snapshots []events.OrderSnapshot
}

func (p *published) Publish(_ context.Context, name string, payload any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap, ok := payload.(events.OrderSnapshot); ok && name == events.OrderUpdated {
		p.snapshots = append(p.snapshots, snap)
	}
	return 1
}

func (p *published) all() []events.OrderSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderSnapshot(nil), p.snapshots...)
}

type env struct {
	db         *gorm.DB
	pub        *published
	audit      *services.ActivityService
	auth       *services.AuthService
	users      *services.UserService
	orders     *services.OrderService
	executions *services.ExecutionService
	rechecks   *services.RecheckService
	exports    *services.ExportService

	admin, strategist, nomineeA, nomineeB, nomineeC models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testkit.DB(t)
	store := cache.NewMemory()
	e := &env{db: db, pub: &published{}}
	e.audit = services.NewActivityService(db)
	e.auth = services.NewAuthService(db, e.audit, store)
	e.users = services.NewUserService(db, e.audit, store)
	e.orders = services.NewOrderService(db, e.auth, e.audit, e.pub)
	e.executions = services.NewExecutionService(db, e.audit, e.pub)
	e.rechecks = services.NewRecheckService(db, e.auth, e.audit)
	e.exports = services.NewExportService(db)

	e.admin = testkit.User(t, db, models.RoleAdmin, "Admin")
	e.strategist = testkit.User(t, db, models.RoleStrategist, "Strategist")
	e.nomineeA = testkit.User(t, db, models.RoleNominee, "Nominee A")
	e.nomineeB = testkit.User(t, db, models.RoleNominee, "Nominee B")
	e.nomineeC = testkit.User(t, db, models.RoleNominee, "Nominee C")
	return e
}

func (e *env) count(t *testing.T, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}
