package idpool

import (
	"log/slog"
	"sync"

	"github.com/xuminwlt/j360-idgen/internal/allocator"
	"github.com/xuminwlt/j360-idgen/internal/events"
	"github.com/xuminwlt/j360-idgen/internal/metrics"
)

// Manager lazily constructs and holds one Pool per (domain, key).
// Pools for different tenants are fully independent; the manager only
// coordinates their creation.
type Manager struct {
	allocator allocator.RemoteAllocator
	broker    *events.Broker
	defaults  Config // tunables applied to newly created pools

	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager creates a pool manager. The defaults' Domain and Key fields
// are ignored; only the tunables are applied to new pools.
func NewManager(alloc allocator.RemoteAllocator, broker *events.Broker, defaults Config) *Manager {
	return &Manager{
		allocator: alloc,
		broker:    broker,
		defaults:  defaults,
		pools:     make(map[string]*Pool),
	}
}

// Get returns the pool for (domain, key), creating it on first use.
func (m *Manager) Get(domain, key string) (*Pool, error) {
	name := domain + "/" + key

	m.mu.RLock()
	pool, ok := m.pools[name]
	m.mu.RUnlock()
	if ok {
		return pool, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have created the pool while we upgraded the lock.
	if pool, ok := m.pools[name]; ok {
		return pool, nil
	}

	cfg := m.defaults
	cfg.Domain = domain
	cfg.Key = key
	pool, err := New(cfg, m.allocator, m.broker)
	if err != nil {
		return nil, err
	}
	m.pools[name] = pool
	metrics.PoolsActive.Set(float64(len(m.pools)))

	slog.Info("created identifier pool",
		"pool", name,
		"alloc_count", pool.AllocCount(),
		"pool_lower_bound", pool.PoolLowerBound(),
		"lent_pool_upper_bound", pool.LentPoolUpperBound(),
	)
	return pool, nil
}

// Lookup returns the pool for (domain, key) without creating it.
func (m *Manager) Lookup(domain, key string) (*Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, ok := m.pools[domain+"/"+key]
	return pool, ok
}

// Pools returns a snapshot of all managed pools.
func (m *Manager) Pools() []*Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, pool := range m.pools {
		pools = append(pools, pool)
	}
	return pools
}

// Len returns the number of managed pools.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}
