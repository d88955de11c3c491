package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, exp services.Export, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(exp.Body)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestRenderOrdersIsScopedToStrategist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.orders.Create(ctx, testkit.Identity(e.strategist), e.orderInput(e.nomineeA, e.nomineeB))
	require.NoError(t, err)
	other := testkit.User(t, e.db, models.RoleStrategist, "Other Strategist")

	exp, err := e.exports.Render(ctx, testkit.Identity(e.strategist), services.ExportOrders)
	require.NoError(t, err)
	assert.Equal(t, "orders.xlsx", exp.Filename)
	assert.Contains(t, exp.ContentType, "spreadsheetml")

	rows := readSheet(t, exp, "Orders")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Order ID", "Stock", "Price", "Lots", "Order Type", "Status", "Strategist Name", "Nominee Name", "Created At"}, rows[0])
	assert.Equal(t, "BBCA", rows[1][1])
	assert.Equal(t, "Strategist", rows[1][6])
	assert.Equal(t, "Nominee A, Nominee B", rows[1][7])

	exp, err = e.exports.Render(ctx, testkit.Identity(other), services.ExportOrders)
	require.NoError(t, err)
	assert.Len(t, readSheet(t, exp, "Orders"), 1)
}

func TestRenderRechecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.rechecks.Submit(ctx, testkit.Identity(e.nomineeA), recheckInput("2026-10-15", 100, map[string]any{"BBCA": "10"}))
	require.NoError(t, err)

	exp, err := e.exports.Render(ctx, testkit.Identity(e.admin), services.ExportRechecks)
	require.NoError(t, err)
	rows := readSheet(t, exp, "Rechecks")
	require.Len(t, rows, 2)
	assert.Equal(t, "Tanggal", rows[0][0])
	assert.Equal(t, "2026-10-15", rows[1][0])
	assert.Equal(t, "Nominee A", rows[1][4])
	assert.Equal(t, "❌", rows[1][5])
}

func TestRenderRejectsUnknownKindAndWrongRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.exports.Render(ctx, testkit.Identity(e.admin), "payroll")
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "kind")

	_, err = e.exports.Render(ctx, testkit.Identity(e.nomineeA), services.ExportOrders)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = e.exports.Render(ctx, testkit.Identity(e.strategist), services.ExportActivity)
	assert.ErrorIs(t, err, services.ErrForbidden)
}
