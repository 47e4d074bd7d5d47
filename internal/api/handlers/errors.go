package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/xuminwlt/j360-idgen/internal/idpool"
)

// errorResponse writes the standard error envelope.
func errorResponse(c *fiber.Ctx, status int, errType, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message": message,
			"type":    errType,
			"code":    status,
		},
	})
}

// poolError maps pool failures onto HTTP responses. Exhaustion is
// retryable (503), a failing remote allocator is a bad gateway (502),
// caller bugs are 400s.
func poolError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, idpool.ErrEmptyIdentifier),
		errors.Is(err, idpool.ErrMissingDomain),
		errors.Is(err, idpool.ErrMissingKey):
		return errorResponse(c, fiber.StatusBadRequest, "InvalidArgumentException", err.Error())
	case errors.Is(err, idpool.ErrPoolExhausted):
		return errorResponse(c, fiber.StatusServiceUnavailable, "PoolExhaustedException", err.Error())
	}

	var refillErr *idpool.RefillError
	if errors.As(err, &refillErr) {
		return errorResponse(c, fiber.StatusBadGateway, "AllocatorFailureException", err.Error())
	}

	return errorResponse(c, fiber.StatusInternalServerError, "ServerError", err.Error())
}
