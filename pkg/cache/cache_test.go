package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "revoked:abc", true, time.Hour))
	ok, _ := m.Has(ctx, "revoked:abc")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = m.Has(ctx, "revoked:abc")
	assert.False(t, ok)
}

func TestMemoryGetDel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []string{"a", "b"}, 0))

	var got []string
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, m.Del(ctx, "k"))
	hit, _ = m.Get(ctx, "k", &got)
	assert.False(t, hit)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	calls := 0
	load := func() (int, error) { calls++; return 7, nil }

	for i := 0; i < 3; i++ {
		v, err := Remember(ctx, m, "n", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, calls)

	_, err := Remember(ctx, m, "other", time.Minute, func() (int, error) { return 0, errors.New("db down") })
	assert.Error(t, err)
	hit, _ := m.Has(ctx, "other")
	assert.False(t, hit)
}
