package seeders_test

import (
	"bytes"
	"testing"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/database/seeders"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllIsIdempotent(t *testing.T) {
	db := testkit.DB(t)

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(db, &out))
	require.NoError(t, seeders.RunAll(db, &out))
	assert.Contains(t, out.String(), "Running seeder: users")

	var users []models.User
	require.NoError(t, db.Order("email").Find(&users).Error)
	require.Len(t, users, 3)

	var admin models.User
	require.NoError(t, db.First(&admin, "email = ?", "admin@super.com").Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.Check(admin.Pin, "1005"))

	var orders, breakdowns int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderBreakdown{}).Where("status = ?", models.BreakdownWaiting).Count(&breakdowns).Error)
	assert.EqualValues(t, 3, orders)
	assert.EqualValues(t, 3, breakdowns)
}
