package idpool

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/xuminwlt/j360-idgen/internal/allocator"
	"github.com/xuminwlt/j360-idgen/internal/events"
	"github.com/xuminwlt/j360-idgen/internal/metrics"
)

const (
	// DefaultAllocCount is the number of identifiers fetched per refill.
	DefaultAllocCount = 20

	// DefaultPoolLowerBound is the fresh-pool size at or below which a
	// refill is triggered.
	DefaultPoolLowerBound = 10

	// DefaultLentPoolUpperBound is the lent-pool size at which all
	// outstanding identifiers are considered leaked and discarded.
	DefaultLentPoolUpperBound = 100000

	// DevDomain marks a tenant whose fetched identifiers are shifted by
	// devIDOffset, keeping development and CI ranges disjoint from
	// production counters sharing the same remote counter.
	DevDomain = "user-service-dev"

	devIDOffset = 100000000
)

// Config holds the tenant coordinates and tunables for one pool.
// Domain and Key are required; zero tunables fall back to the defaults.
type Config struct {
	Domain             string `mapstructure:"domain"`
	Key                string `mapstructure:"key"`
	AllocCount         int    `mapstructure:"alloc_count"`
	PoolLowerBound     int    `mapstructure:"pool_lower_bound"`
	LentPoolUpperBound int    `mapstructure:"lent_pool_upper_bound"`
}

// Pool caches identifiers for one (domain, key) tenant counter.
//
// Fresh and lent collections are guarded by mu; freshSize mirrors the
// fresh queue length so the borrow fast path can check it without
// taking the lock. refillMu serializes remote refill calls so at most
// one is in flight per pool.
type Pool struct {
	domain string
	key    string
	name   string // "domain/key", used as metric label and event topic

	allocator allocator.RemoteAllocator
	broker    *events.Broker

	allocCount     atomic.Int64
	lowerBound     atomic.Int64
	lentUpperBound atomic.Int64

	freshSize atomic.Int64

	mu    sync.Mutex
	fresh *queue.Queue
	lent  map[string]struct{}

	refillMu sync.Mutex
}

// New creates an empty pool for the given tenant coordinates.
// The broker is optional; pass nil to disable event publication.
func New(cfg Config, alloc allocator.RemoteAllocator, broker *events.Broker) (*Pool, error) {
	if cfg.Domain == "" {
		return nil, ErrMissingDomain
	}
	if cfg.Key == "" {
		return nil, ErrMissingKey
	}
	if alloc == nil {
		return nil, ErrNilAllocator
	}

	p := &Pool{
		domain:    cfg.Domain,
		key:       cfg.Key,
		name:      cfg.Domain + "/" + cfg.Key,
		allocator: alloc,
		broker:    broker,
		fresh:     queue.New(),
		lent:      make(map[string]struct{}),
	}
	p.allocCount.Store(int64(orDefault(cfg.AllocCount, DefaultAllocCount)))
	p.lowerBound.Store(int64(orDefault(cfg.PoolLowerBound, DefaultPoolLowerBound)))
	p.lentUpperBound.Store(int64(orDefault(cfg.LentPoolUpperBound, DefaultLentPoolUpperBound)))

	return p, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Borrow claims one identifier, moving it from the fresh pool to the
// lent pool. When the fresh pool is running low it is refilled from the
// remote allocator first; a failing refill propagates to this caller.
// An empty fresh pool after the refill attempt yields ErrPoolExhausted.
func (p *Pool) Borrow(ctx context.Context) (string, error) {
	if p.freshSize.Load() <= p.lowerBound.Load() {
		if err := p.refill(ctx); err != nil {
			metrics.RecordBorrow(p.name, metrics.OutcomeError)
			return "", err
		}
	}

	p.mu.Lock()
	if p.fresh.Length() == 0 {
		p.mu.Unlock()
		metrics.RecordBorrow(p.name, metrics.OutcomeExhausted)
		p.publish(events.NewEvent(events.PoolExhausted, p.domain, p.key))
		return "", ErrPoolExhausted
	}

	id := p.fresh.Remove().(string)
	p.lent[id] = struct{}{}
	p.freshSize.Store(int64(p.fresh.Length()))

	// Safety valve: a lent pool this large means callers are borrowing
	// and never resolving. Drop all outstanding identifiers, including
	// the one just lent.
	discarded := 0
	if int64(len(p.lent)) >= p.lentUpperBound.Load() {
		discarded = len(p.lent)
		p.lent = make(map[string]struct{})
	}
	freshNow, lentNow := p.fresh.Length(), len(p.lent)
	p.mu.Unlock()

	if discarded > 0 {
		slog.Warn("lent pool over limit, discarding outstanding identifiers",
			"pool", p.name,
			"discarded", discarded,
		)
		metrics.RecordLentDiscard(p.name, discarded)
		p.publish(events.NewEvent(events.PoolOverflowDiscarded, p.domain, p.key).
			WithMetadata("discarded", discarded))
	}

	metrics.RecordBorrow(p.name, metrics.OutcomeOK)
	metrics.UpdatePoolSizes(p.name, freshNow, lentNow)
	return id, nil
}

// refill fetches a new batch from the remote allocator. The refillMu
// gate plus the size re-check guarantee at most one in-flight remote
// call per pool: borrowers that lose the race wait at the gate and then
// observe the replenished pool.
func (p *Pool) refill(ctx context.Context) error {
	p.refillMu.Lock()
	defer p.refillMu.Unlock()

	// Re-check after acquiring the gate: a concurrent borrower may have
	// completed the refill while this one was waiting.
	freshSize := p.freshSize.Load()
	if freshSize > p.lowerBound.Load() {
		return nil
	}

	count := int(p.allocCount.Load())
	slog.Debug("fresh pool running low, allocating new identifiers",
		"pool", p.name,
		"fresh", freshSize,
		"count", count,
	)

	batch, err := p.allocator.Allocate(ctx, p.domain, p.key, count)
	if err != nil {
		metrics.RecordRefillFailure(p.name)
		p.publish(events.NewEvent(events.AllocatorFailed, p.domain, p.key).
			WithMetadata("error", err.Error()))
		return &RefillError{Domain: p.domain, Key: p.key, Err: err}
	}

	// An empty batch is not a refill failure: the allocator may hand out
	// fewer identifiers than requested. Borrowers see ErrPoolExhausted
	// when demand outruns what was delivered.
	ids := parseBatch(batch)

	if p.domain == DevDomain {
		ids, err = shiftBatch(ids, devIDOffset)
		if err != nil {
			metrics.RecordRefillFailure(p.name)
			return &RefillError{Domain: p.domain, Key: p.key, Err: err}
		}
	}

	p.mu.Lock()
	for _, id := range ids {
		p.fresh.Add(id)
	}
	p.freshSize.Store(int64(p.fresh.Length()))
	freshNow, lentNow := p.fresh.Length(), len(p.lent)
	p.mu.Unlock()

	metrics.RecordRefill(p.name, len(ids))
	metrics.UpdatePoolSizes(p.name, freshNow, lentNow)
	p.publish(events.NewEvent(events.PoolRefilled, p.domain, p.key).
		WithMetadata("fetched", len(ids)))
	return nil
}

// Giveback returns a borrowed identifier to the fresh pool for reuse.
// Identifiers not currently lent (already resolved, or dropped by the
// overflow safety valve) are ignored.
func (p *Pool) Giveback(id string) error {
	if id == "" {
		return ErrEmptyIdentifier
	}

	p.mu.Lock()
	_, lent := p.lent[id]
	if lent {
		delete(p.lent, id)
		p.fresh.Add(id)
		p.freshSize.Store(int64(p.fresh.Length()))
	}
	freshNow, lentNow := p.fresh.Length(), len(p.lent)
	p.mu.Unlock()

	if lent {
		metrics.RecordGiveback(p.name)
		metrics.UpdatePoolSizes(p.name, freshNow, lentNow)
	}
	return nil
}

// Consume permanently retires a borrowed identifier from the pool's
// bookkeeping; the caller is presumed to have durably recorded its use.
// Identifiers not currently lent are ignored.
func (p *Pool) Consume(id string) error {
	if id == "" {
		return ErrEmptyIdentifier
	}

	p.mu.Lock()
	_, lent := p.lent[id]
	if lent {
		delete(p.lent, id)
	}
	freshNow, lentNow := p.fresh.Length(), len(p.lent)
	p.mu.Unlock()

	if lent {
		metrics.RecordConsume(p.name)
		metrics.UpdatePoolSizes(p.name, freshNow, lentNow)
	}
	return nil
}

// FreshCount returns the current fresh pool size. Advisory only: it may
// be stale immediately after return under concurrency.
func (p *Pool) FreshCount() int {
	return int(p.freshSize.Load())
}

// LentCount returns the current lent pool size. Advisory only.
func (p *Pool) LentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lent)
}

// Name returns the "domain/key" label for this pool.
func (p *Pool) Name() string { return p.name }

// Domain returns the tenant config domain.
func (p *Pool) Domain() string { return p.domain }

// Key returns the tenant config key.
func (p *Pool) Key() string { return p.key }

// AllocCount returns the batch size per refill.
func (p *Pool) AllocCount() int { return int(p.allocCount.Load()) }

// SetAllocCount updates the batch size per refill. Values below 1 are
// ignored.
func (p *Pool) SetAllocCount(n int) {
	if n > 0 {
		p.allocCount.Store(int64(n))
	}
}

// PoolLowerBound returns the refill trigger threshold.
func (p *Pool) PoolLowerBound() int { return int(p.lowerBound.Load()) }

// SetPoolLowerBound updates the refill trigger threshold. Negative
// values are ignored.
func (p *Pool) SetPoolLowerBound(n int) {
	if n >= 0 {
		p.lowerBound.Store(int64(n))
	}
}

// LentPoolUpperBound returns the overflow discard threshold.
func (p *Pool) LentPoolUpperBound() int { return int(p.lentUpperBound.Load()) }

// SetLentPoolUpperBound updates the overflow discard threshold. Values
// below 1 are ignored.
func (p *Pool) SetLentPoolUpperBound(n int) {
	if n > 0 {
		p.lentUpperBound.Store(int64(n))
	}
}

func (p *Pool) publish(event *events.PoolEvent) {
	if p.broker != nil {
		p.broker.Publish(*event)
	}
}

// parseBatch splits a comma-separated batch into identifier tokens,
// dropping surrounding whitespace and empty tokens.
func parseBatch(batch string) []string {
	parts := strings.Split(batch, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// shiftBatch numerically shifts every identifier in a batch by offset.
// A non-numeric token fails the whole batch so no partial refill is
// ever applied.
func shiftBatch(ids []string, offset int64) ([]string, error) {
	shifted := make([]string, len(ids))
	for i, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed identifier %q in batch: %w", id, err)
		}
		shifted[i] = strconv.FormatInt(n+offset, 10)
	}
	return shifted, nil
}
