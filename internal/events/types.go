package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of pool lifecycle event.
type EventType string

const (
	// Pool events
	PoolRefilled          EventType = "pool.refilled"
	PoolExhausted         EventType = "pool.exhausted"
	PoolOverflowDiscarded EventType = "pool.overflow_discarded"

	// Allocator events
	AllocatorFailed EventType = "allocator.failed"
)

// PoolEvent represents a state change in one tenant's identifier pool.
type PoolEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Domain    string         `json:"domain"`
	Key       string         `json:"key,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates a new pool event for the given tenant coordinates.
func NewEvent(eventType EventType, domain, key string) *PoolEvent {
	return &PoolEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Domain:    domain,
		Key:       key,
		Metadata:  make(map[string]any),
	}
}

// WithMetadata attaches a metadata entry and returns the event for chaining.
func (e *PoolEvent) WithMetadata(key string, value any) *PoolEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// Topic returns the subscription topic for this event.
// Events on (domain, key) publish to "domain/key"; subscribers on
// "domain" or "*" also receive them.
func (e *PoolEvent) Topic() string {
	if e.Key == "" {
		return e.Domain
	}
	return e.Domain + "/" + e.Key
}
