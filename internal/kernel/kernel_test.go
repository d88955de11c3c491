package kernel_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/internal/kernel"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/mmsi/orderdesk/pkg/app"
	"github.com/mmsi/orderdesk/pkg/cache"
	"github.com/mmsi/orderdesk/pkg/event"
	"github.com/mmsi/orderdesk/pkg/queue"
	"github.com/mmsi/orderdesk/pkg/schedule"
	"github.com/mmsi/orderdesk/pkg/storage"
	"github.com/mmsi/orderdesk/pkg/workerpool"
	"github.com/mmsi/orderdesk/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	handler http.Handler
	kernel  *kernel.Kernel

	admin, strategist, nominee models.User
}

// newStack boots the kernel on in-process infrastructure.
func newStack(t *testing.T) stack {
	t.Helper()
	db := testkit.DB(t)
	disk, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	disks := storage.NewManager("local")
	disks.Register("local", disk)

	pool := workerpool.New(2)
	infra := &app.Infra{
		DB:        db,
		Cache:     cache.NewMemory(),
		Pool:      pool,
		Bus:       event.NewBus(pool),
		Hub:       ws.NewHub(),
		Queue:     queue.New(queue.NewMemoryDriver(), db),
		Storage:   disks,
		Scheduler: schedule.New(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	go infra.Hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Shutdown()
	})

	k, err := kernel.New(infra)
	require.NoError(t, err)
	return stack{
		handler:    k.Handler(),
		kernel:     k,
		admin:      testkit.User(t, db, models.RoleAdmin, "Admin"),
		strategist: testkit.User(t, db, models.RoleStrategist, "Strategist"),
		nominee:    testkit.User(t, db, models.RoleNominee, "Nominee"),
	}
}

func (s stack) do(t *testing.T, method, path string, as *models.User, body any) testkit.Response {
	t.Helper()
	token := ""
	if as != nil {
		token = testkit.Token(t, *as)
	}
	return testkit.Do(t, s.handler, method, path, token, body)
}

func TestLoginAndLogout(t *testing.T) {
	s := newStack(t)

	res := s.do(t, http.MethodPost, "/api/login", nil, map[string]string{"email": s.nominee.Email, "password": testkit.Password, "pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "PIN salah.", res.Envelope(t).Message)

	res = s.do(t, http.MethodPost, "/api/login", nil, map[string]string{"email": s.nominee.Email, "password": testkit.Password, "pin": testkit.Pin})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	res.Data(t, &login)
	require.NotEmpty(t, login.AccessToken)

	me := testkit.Do(t, s.handler, http.MethodGet, "/api/user", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	out := testkit.Do(t, s.handler, http.MethodPost, "/api/logout", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, out.Code)

	me = testkit.Do(t, s.handler, http.MethodGet, "/api/user", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestAuthenticationAndRoles(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/strategist/orders", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/strategist/orders", &s.nominee, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/users", &s.strategist, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/users", &s.admin, nil).Code)

	res := s.do(t, http.MethodGet, "/api/redirect-dashboard", &s.strategist, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var dash struct {
		Redirect string `json:"redirect"`
	}
	res.Data(t, &dash)
	assert.Equal(t, "/strategist/dashboard", dash.Redirect)
}

func TestOrderLifecycle(t *testing.T) {
	s := newStack(t)

	bad := s.do(t, http.MethodPost, "/api/strategist/orders", &s.strategist, map[string]any{
		"stock": "BBCA", "price": "8500", "lots": 0, "order_type": "Hold",
		"selected_target": []string{s.nominee.ID}, "pin": testkit.Pin,
	})
	require.Equal(t, http.StatusUnprocessableEntity, bad.Code)
	env := bad.Envelope(t)
	assert.Contains(t, env.Errors, "lots")
	assert.Contains(t, env.Errors, "order_type")

	created := s.do(t, http.MethodPost, "/api/strategist/orders", &s.strategist, map[string]any{
		"stock": "BBCA", "price": "8500", "lots": 10, "order_type": "Buy",
		"selected_target": []string{s.nominee.ID}, "pin": testkit.Pin,
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.Equal(t, "Order created and distributed successfully.", created.Envelope(t).Message)

	list := s.do(t, http.MethodGet, "/api/nominee/instructions", &s.nominee, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var rows []struct {
		ID    string `json:"id"`
		Lots  int    `json:"lots"`
		Stock string `json:"stock"`
	}
	list.Data(t, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Lots)

	path := "/api/nominee/execute/" + rows[0].ID
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path, &s.nominee, nil).Code)
	again := s.do(t, http.MethodPost, path, &s.nominee, nil)
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, "Instruction already executed.", again.Envelope(t).Message)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/nominee/execute/missing", &s.nominee, nil).Code)
}

func TestRecheckOverHTTP(t *testing.T) {
	s := newStack(t)

	res := s.do(t, http.MethodPost, "/api/recheck", &s.nominee, map[string]any{
		"date": "2026-10-15", "cash": 1000, "portfolio": map[string]any{"BBCA": "10", "": "3"}, "pin": "9999",
	})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(t, http.MethodPost, "/api/recheck", &s.nominee, map[string]any{
		"date": "2026-10-15", "cash": 1000, "portfolio": map[string]any{"BBCA": "10", "": "3"}, "pin": testkit.Pin,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var rc struct {
		ID string `json:"id"`
	}
	res.Data(t, &rc)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/recheck/"+rc.ID+"/verify", &s.nominee, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/recheck/"+rc.ID+"/verify", &s.admin, nil).Code)

	sum := s.do(t, http.MethodGet, "/api/recheck-summary", &s.nominee, nil)
	require.Equal(t, http.StatusOK, sum.Code)
	var totals struct {
		TotalKas      string `json:"totalKas"`
		VerifiedCount int    `json:"verifiedCount"`
	}
	sum.Data(t, &totals)
	assert.Equal(t, "1000", totals.TotalKas)
	assert.Equal(t, 1, totals.VerifiedCount)
}

func TestExportDownloads(t *testing.T) {
	s := newStack(t)

	res := s.do(t, http.MethodGet, "/api/strategist/orders/export", &s.strategist, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, res.Header().Get("Content-Disposition"), "orders.xlsx")

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/recheck-export", &s.nominee, nil).Code)

	queued := s.do(t, http.MethodPost, "/api/admin/exports/rechecks/archive", &s.admin, nil)
	require.Equal(t, http.StatusAccepted, queued.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/admin/exports/nope/archive", &s.admin, nil).Code)
}

func TestHealthAndGraphQL(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil, nil).Code)

	res := s.do(t, http.MethodPost, "/api/graphql", &s.nominee, map[string]string{"query": "{ waitingInstructions }"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"data":{"waitingInstructions":0}}`, res.Body.String())
}

func TestSweepIsScheduled(t *testing.T) {
	s := newStack(t)
	entries := s.kernel.Infra.Scheduler.List()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], kernel.SweepTask)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.kernel.Infra.Scheduler.RunNow(ctx, kernel.SweepTask))
}
