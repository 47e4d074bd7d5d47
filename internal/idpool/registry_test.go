package idpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestManager_Get(t *testing.T) {
	t.Run("creates pool on first use", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{})

		p, err := m.Get("order-service", "order.id")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("returns same instance", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{})

		p1, err := m.Get("order-service", "order.id")
		require.NoError(t, err)
		p2, err := m.Get("order-service", "order.id")
		require.NoError(t, err)
		assert.Same(t, p1, p2)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("independent pools per tenant", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{})

		p1, err := m.Get("order-service", "order.id")
		require.NoError(t, err)
		p2, err := m.Get("user-service", "user.id")
		require.NoError(t, err)
		assert.NotSame(t, p1, p2)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("defaults applied to new pools", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{
			AllocCount:         64,
			PoolLowerBound:     8,
			LentPoolUpperBound: 1000,
		})

		p, err := m.Get("order-service", "order.id")
		require.NoError(t, err)
		assert.Equal(t, 64, p.AllocCount())
		assert.Equal(t, 8, p.PoolLowerBound())
		assert.Equal(t, 1000, p.LentPoolUpperBound())
	})

	t.Run("empty coordinates rejected", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{})

		_, err := m.Get("", "order.id")
		assert.ErrorIs(t, err, ErrMissingDomain)

		_, err = m.Get("order-service", "")
		assert.ErrorIs(t, err, ErrMissingKey)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("concurrent get yields one pool", func(t *testing.T) {
		m := NewManager(&sequenceAllocator{}, nil, Config{})

		pools := make([]*Pool, 20)
		var g errgroup.Group
		for i := 0; i < 20; i++ {
			i := i
			g.Go(func() error {
				p, err := m.Get("order-service", "order.id")
				pools[i] = p
				return err
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, 1, m.Len())
		for _, p := range pools {
			assert.Same(t, pools[0], p)
		}
	})
}

func TestManager_Lookup(t *testing.T) {
	m := NewManager(&sequenceAllocator{}, nil, Config{})

	_, ok := m.Lookup("order-service", "order.id")
	assert.False(t, ok)

	created, err := m.Get("order-service", "order.id")
	require.NoError(t, err)

	found, ok := m.Lookup("order-service", "order.id")
	assert.True(t, ok)
	assert.Same(t, created, found)
}

func TestManager_Pools(t *testing.T) {
	m := NewManager(&sequenceAllocator{}, nil, Config{})

	assert.Empty(t, m.Pools())

	_, err := m.Get("order-service", "order.id")
	require.NoError(t, err)
	_, err = m.Get("user-service", "user.id")
	require.NoError(t, err)

	pools := m.Pools()
	assert.Len(t, pools, 2)

	names := make(map[string]struct{})
	for _, p := range pools {
		names[p.Name()] = struct{}{}
	}
	assert.Contains(t, names, "order-service/order.id")
	assert.Contains(t, names, "user-service/user.id")
}
