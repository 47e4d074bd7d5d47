package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xuminwlt/j360-idgen/internal/idpool"
)

// resolveRequest is the body for giveback and consume calls.
type resolveRequest struct {
	ID string `json:"id"`
}

// poolConfigResponse is the runtime tunable view of one pool.
type poolConfigResponse struct {
	AllocCount         int `json:"alloc_count"`
	PoolLowerBound     int `json:"pool_lower_bound"`
	LentPoolUpperBound int `json:"lent_pool_upper_bound"`
}

// poolConfigUpdate carries a partial tunable update; absent fields are
// left unchanged.
type poolConfigUpdate struct {
	AllocCount         *int `json:"alloc_count"`
	PoolLowerBound     *int `json:"pool_lower_bound"`
	LentPoolUpperBound *int `json:"lent_pool_upper_bound"`
}

// Borrow claims one identifier from the tenant's pool.
// POST /v1/pools/:domain/:key/borrow
func Borrow(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pool, err := pools.Get(c.Params("domain"), c.Params("key"))
		if err != nil {
			return poolError(c, err)
		}

		id, err := pool.Borrow(c.Context())
		if err != nil {
			return poolError(c, err)
		}

		return c.JSON(fiber.Map{
			"id":     id,
			"domain": pool.Domain(),
			"key":    pool.Key(),
		})
	}
}

// Giveback returns a borrowed identifier to the fresh pool.
// POST /v1/pools/:domain/:key/giveback
func Giveback(pools *idpool.Manager) fiber.Handler {
	return resolve(pools, (*idpool.Pool).Giveback)
}

// Consume permanently retires a borrowed identifier.
// POST /v1/pools/:domain/:key/consume
func Consume(pools *idpool.Manager) fiber.Handler {
	return resolve(pools, (*idpool.Pool).Consume)
}

func resolve(pools *idpool.Manager, op func(*idpool.Pool, string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resolveRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", "malformed request body")
		}

		pool, err := pools.Get(c.Params("domain"), c.Params("key"))
		if err != nil {
			return poolError(c, err)
		}

		if err := op(pool, req.ID); err != nil {
			return poolError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PoolStats reports point-in-time pool sizes. Advisory only: sizes may
// be stale immediately under concurrent traffic.
// GET /v1/pools/:domain/:key/stats
func PoolStats(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pool, err := pools.Get(c.Params("domain"), c.Params("key"))
		if err != nil {
			return poolError(c, err)
		}

		return c.JSON(fiber.Map{
			"domain":      pool.Domain(),
			"key":         pool.Key(),
			"fresh_count": pool.FreshCount(),
			"lent_count":  pool.LentCount(),
		})
	}
}

// GetPoolConfig returns the pool's runtime tunables.
// GET /v1/pools/:domain/:key/config
func GetPoolConfig(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pool, err := pools.Get(c.Params("domain"), c.Params("key"))
		if err != nil {
			return poolError(c, err)
		}
		return c.JSON(configOf(pool))
	}
}

// UpdatePoolConfig applies a partial update to the pool's tunables.
// PATCH /v1/pools/:domain/:key/config
func UpdatePoolConfig(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var update poolConfigUpdate
		if err := c.BodyParser(&update); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", "malformed request body")
		}

		if update.AllocCount != nil && *update.AllocCount < 1 {
			return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", "alloc_count must be at least 1")
		}
		if update.PoolLowerBound != nil && *update.PoolLowerBound < 0 {
			return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", "pool_lower_bound must not be negative")
		}
		if update.LentPoolUpperBound != nil && *update.LentPoolUpperBound < 1 {
			return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", "lent_pool_upper_bound must be at least 1")
		}

		pool, err := pools.Get(c.Params("domain"), c.Params("key"))
		if err != nil {
			return poolError(c, err)
		}

		if update.AllocCount != nil {
			pool.SetAllocCount(*update.AllocCount)
		}
		if update.PoolLowerBound != nil {
			pool.SetPoolLowerBound(*update.PoolLowerBound)
		}
		if update.LentPoolUpperBound != nil {
			pool.SetLentPoolUpperBound(*update.LentPoolUpperBound)
		}

		return c.JSON(configOf(pool))
	}
}

// ListPools enumerates all managed pools with their sizes.
// GET /v1/pools
func ListPools(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		managed := pools.Pools()
		out := make([]fiber.Map, 0, len(managed))
		for _, pool := range managed {
			out = append(out, fiber.Map{
				"domain":      pool.Domain(),
				"key":         pool.Key(),
				"fresh_count": pool.FreshCount(),
				"lent_count":  pool.LentCount(),
			})
		}
		return c.JSON(fiber.Map{"pools": out})
	}
}

func configOf(pool *idpool.Pool) poolConfigResponse {
	return poolConfigResponse{
		AllocCount:         pool.AllocCount(),
		PoolLowerBound:     pool.PoolLowerBound(),
		LentPoolUpperBound: pool.LentPoolUpperBound(),
	}
}
