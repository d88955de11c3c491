package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistribute(t *testing.T) {
	cases := []struct {
		lots, n int
		want    []int
	}{
		{10, 3, []int{4, 3, 3}},
		{2, 3, []int{1, 1, 0}},
		{9, 3, []int{3, 3, 3}},
		{7, 1, []int{7}},
	}
	for _, c := range cases {
		got := services.Distribute(c.lots, c.n)
		assert.Equal(t, c.want, got, "Distribute(%d, %d)", c.lots, c.n)
		sum := 0
		for _, v := range got {
			sum += v
		}
		assert.Equal(t, c.lots, sum)
	}
	assert.Nil(t, services.Distribute(5, 0))
}

func (e *env) orderInput(targets ...models.User) services.CreateOrderInput {
	ids := make([]string, len(targets))
	for i, u := range targets {
		ids[i] = u.ID
	}
	return services.CreateOrderInput{
		Stock:          "BBCA",
		Price:          decimal.NewFromInt(8500),
		Lots:           10,
		OrderType:      models.OrderTypeBuy,
		SelectedTarget: ids,
		Pin:            testkit.Pin,
	}
}

func TestCreateOrderSplitsLotsInSelectionOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	order, err := e.orders.Create(ctx, testkit.Identity(e.strategist), e.orderInput(e.nomineeA, e.nomineeB, e.nomineeC))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusNew, order.Status)

	var rows []models.OrderBreakdown
	require.NoError(t, e.db.Where("order_id = ?", order.ID).Find(&rows).Error)
	byNominee := map[string]models.OrderBreakdown{}
	for _, b := range rows {
		byNominee[*b.NomineeID] = b
	}
	require.Len(t, byNominee, 3)
	assert.Equal(t, 4, byNominee[e.nomineeA.ID].Lots)
	assert.Equal(t, 3, byNominee[e.nomineeB.ID].Lots)
	assert.Equal(t, 3, byNominee[e.nomineeC.ID].Lots)
	for _, b := range rows {
		assert.Equal(t, models.BreakdownWaiting, b.Status)
		assert.Nil(t, b.ExecutionTime)
		assert.Equal(t, "BBCA", b.Stock)
		assert.True(t, b.Price.Equal(decimal.NewFromInt(8500)))
	}

	assert.EqualValues(t, 1, e.count(t, &models.ActivityLog{}, "action_type = ?", models.ActionCreateOrder))

	snaps := e.pub.all()
	require.Len(t, snaps, 1)
	assert.Equal(t, order.ID, snaps[0].ID)
	assert.Len(t, snaps[0].Breakdowns, 3)
	assert.Equal(t, "Nominee A", snaps[0].Breakdowns[0].Nominee)
}

func TestCreateOrderBadPinPersistsNothing(t *testing.T) {
	e := newEnv(t)
	in := e.orderInput(e.nomineeA)
	in.Pin = "9999"

	_, err := e.orders.Create(context.Background(), testkit.Identity(e.strategist), in)
	assert.ErrorIs(t, err, services.ErrInvalidPin)

	assert.Zero(t, e.count(t, &models.Order{}))
	assert.Zero(t, e.count(t, &models.OrderBreakdown{}))
	assert.Zero(t, e.count(t, &models.ActivityLog{}))
	assert.Empty(t, e.pub.all())
}

func TestCreateOrderRejectsNonStrategist(t *testing.T) {
	e := newEnv(t)
	_, err := e.orders.Create(context.Background(), testkit.Identity(e.nomineeA), e.orderInput(e.nomineeB))
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Zero(t, e.count(t, &models.Order{}))
}

func TestCreateOrderValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := testkit.Identity(e.strategist)

	in := e.orderInput(e.nomineeA)
	in.Lots = 0
	in.OrderType = "Hold"
	_, err := e.orders.Create(ctx, id, in)
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "lots")
	assert.Contains(t, verr.Fields, "order_type")

	in = e.orderInput(e.nomineeA, e.admin)
	_, err = e.orders.Create(ctx, id, in)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "selected_target.1")
	assert.Zero(t, e.count(t, &models.Order{}))
}

func TestListOwnAndMonitorExecutionAreScoped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := testkit.User(t, e.db, models.RoleStrategist, "Other Strategist")

	_, err := e.orders.Create(ctx, testkit.Identity(e.strategist), e.orderInput(e.nomineeA, e.nomineeB))
	require.NoError(t, err)
	_, err = e.orders.Create(ctx, testkit.Identity(other), e.orderInput(e.nomineeC))
	require.NoError(t, err)

	own, err := e.orders.ListOwn(ctx, testkit.Identity(e.strategist))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Len(t, own[0].Breakdowns, 2)

	rows, err := e.orders.MonitorExecution(ctx, testkit.Identity(e.strategist))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "Strategist", r.StrategistName)
		assert.Equal(t, "Waiting", r.StatusLabel)
	}
}

func TestExecutionTrendCountsPerDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.orders.Create(ctx, testkit.Identity(e.strategist), e.orderInput(e.nomineeA, e.nomineeB))
	require.NoError(t, err)

	var rows []models.OrderBreakdown
	require.NoError(t, e.db.Find(&rows).Error)
	for _, b := range rows {
		owner := e.nomineeA
		if *b.NomineeID == e.nomineeB.ID {
			owner = e.nomineeB
		}
		_, err := e.executions.Execute(ctx, testkit.Identity(owner), b.ID)
		require.NoError(t, err)
	}

	points, err := e.orders.ExecutionTrend(ctx, testkit.Identity(e.strategist))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].Count)
}

func TestBreakdownsKeepSelectionOrderAfterReload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	strategist := testkit.Identity(e.strategist)
	wantNames := []string{"Nominee A", "Nominee B", "Nominee C"}
	wantLots := []int{4, 3, 3}

	// Breakdowns of one order share created_at, so only the stored
	// position can keep them in selection order.
	const orders = 12
	for i := 0; i < orders; i++ {
		order, err := e.orders.Create(ctx, strategist, e.orderInput(e.nomineeA, e.nomineeB, e.nomineeC))
		require.NoError(t, err)

		var first models.OrderBreakdown
		require.NoError(t, e.db.Where("order_id = ? AND nominee_id = ?", order.ID, e.nomineeA.ID).First(&first).Error)
		assert.Equal(t, 0, first.Position)
		_, err = e.executions.Execute(ctx, testkit.Identity(e.nomineeA), first.ID)
		require.NoError(t, err)

		snaps := e.pub.all()
		last := snaps[len(snaps)-1]
		require.Equal(t, order.ID, last.ID)
		require.Len(t, last.Breakdowns, 3)
		for j, b := range last.Breakdowns {
			assert.Equal(t, wantNames[j], b.Nominee, "order %d breakdown %d", i, j)
			assert.Equal(t, wantLots[j], b.Lots, "order %d breakdown %d", i, j)
		}
		assert.Equal(t, models.BreakdownExecuted, last.Breakdowns[0].Status)
	}

	own, err := e.orders.ListOwn(ctx, strategist)
	require.NoError(t, err)
	require.Len(t, own, orders)
	for i, o := range own {
		require.Len(t, o.Breakdowns, 3)
		for j, b := range o.Breakdowns {
			assert.Equal(t, wantNames[j], b.NomineeName(), "order %d breakdown %d", i, j)
			assert.Equal(t, wantLots[j], b.Lots, "order %d breakdown %d", i, j)
			assert.Equal(t, j, b.Position)
		}
	}
}
