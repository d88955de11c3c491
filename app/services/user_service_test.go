package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/internal/testkit"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testkit.Identity(e.admin)
	in := services.RegisterInput{Name: "New Nominee", Email: "new@test.local", Password: "Secret123!", Pin: "4321", Role: "nominee"}

	u, err := e.users.Register(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNominee, u.Role)
	assert.True(t, u.Active)
	assert.True(t, auth.Check(u.Pin, "4321"))
	assert.EqualValues(t, 1, e.count(t, &models.ActivityLog{}, "action_type = ?", models.ActionRegisterUser))

	_, err = e.users.Register(ctx, admin, in)
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")

	in.Email, in.Role = "other@test.local", "GUEST"
	_, err = e.users.Register(ctx, admin, in)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")

	in.Role = models.RoleNominee
	_, err = e.users.Register(ctx, testkit.Identity(e.strategist), in)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestToggleInvalidatesNomineeCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testkit.Identity(e.admin)

	list, err := e.users.Nominees(ctx, testkit.Identity(e.strategist))
	require.NoError(t, err)
	assert.Len(t, list, 3)

	u, err := e.users.Toggle(ctx, admin, e.nomineeB.ID)
	require.NoError(t, err)
	assert.False(t, u.Active)

	list, err = e.users.Nominees(ctx, testkit.Identity(e.strategist))
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, n := range list {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"Nominee A", "Nominee C"}, names)

	u, err = e.users.Toggle(ctx, admin, e.nomineeB.ID)
	require.NoError(t, err)
	assert.True(t, u.Active)
	assert.EqualValues(t, 2, e.count(t, &models.ActivityLog{}, "action_type = ?", models.ActionToggleUser))

	_, err = e.users.Toggle(ctx, admin, "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = e.users.Nominees(ctx, testkit.Identity(e.nomineeA))
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestDeactivateInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, -7, 0)
	recent := time.Now().UTC().AddDate(0, -1, 0)

	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.nomineeA.ID).Update("last_login_at", old).Error)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.nomineeB.ID).Update("created_at", old).Error)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.nomineeC.ID).Updates(map[string]any{"created_at": old, "last_login_at": recent}).Error)

	_, err := e.users.DeactivateInactive(ctx, testkit.Identity(e.strategist))
	assert.ErrorIs(t, err, services.ErrForbidden)

	n, err := e.users.DeactivateInactive(ctx, testkit.Identity(e.admin))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 2, e.count(t, &models.User{}, "active = ?", false))
	assert.EqualValues(t, 0, e.count(t, &models.User{}, "id = ? AND active = ?", e.nomineeC.ID, false))

	// The scheduler runs with no actor; nobody is left to switch off.
	n, err = e.users.DeactivateInactive(ctx, auth.Identity{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 1, e.count(t, &models.ActivityLog{}, "action_type = ?", models.ActionDeactivateInactive))
}
