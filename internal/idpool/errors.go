package idpool

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDomain is returned when a pool is constructed without a
	// config domain.
	ErrMissingDomain = errors.New("idpool: config domain is required")

	// ErrMissingKey is returned when a pool is constructed without a
	// config key.
	ErrMissingKey = errors.New("idpool: config key is required")

	// ErrNilAllocator is returned when a pool is constructed without a
	// remote allocator.
	ErrNilAllocator = errors.New("idpool: remote allocator is required")

	// ErrEmptyIdentifier is returned when giveback or consume is called
	// with an empty identifier.
	ErrEmptyIdentifier = errors.New("idpool: identifier must not be empty")

	// ErrPoolExhausted is returned when borrow cannot obtain an
	// identifier even after attempting a refill. Callers may retry.
	ErrPoolExhausted = errors.New("idpool: fresh pool exhausted")
)

// RefillError wraps a failed refill of the fresh pool. The pool state is
// unchanged when it is returned: no partial batch is ever applied.
type RefillError struct {
	Domain string
	Key    string
	Err    error
}

func (e *RefillError) Error() string {
	return fmt.Sprintf("idpool: refilling pool %s/%s: %v", e.Domain, e.Key, e.Err)
}

func (e *RefillError) Unwrap() error {
	return e.Err
}
