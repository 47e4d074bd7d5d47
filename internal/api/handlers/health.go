package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xuminwlt/j360-idgen/internal/idpool"
)

// HealthCheck returns a simple health check response.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}

// ReadyCheck checks if the agent is ready to serve identifiers.
// The pool is purely in-memory, so readiness means the pool manager is
// wired up; allocator reachability surfaces per-borrow instead.
func ReadyCheck(pools *idpool.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pools == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": fiber.Map{
					"pools": "not configured",
				},
			})
		}

		return c.JSON(fiber.Map{
			"status": "ready",
			"checks": fiber.Map{
				"pools": "healthy",
			},
			"pool_count": pools.Len(),
		})
	}
}
