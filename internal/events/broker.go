package events

import (
	"log/slog"
	"sync"
)

// Broker is an in-memory event broker for pub/sub of pool events.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan PoolEvent]struct{}
	bufferSize  int
	closed      bool
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[chan PoolEvent]struct{}),
		bufferSize:  16, // Buffer size for each subscription channel
	}
}

// Subscription represents an active subscription that can be used for cleanup.
type Subscription struct {
	topic  string
	ch     chan PoolEvent
	broker *Broker
}

// Events returns the channel for receiving events.
func (s *Subscription) Events() <-chan PoolEvent {
	return s.ch
}

// Unsubscribe removes this subscription and closes the channel.
func (s *Subscription) Unsubscribe() {
	s.broker.unsubscribe(s.topic, s.ch)
}

// Subscribe creates a subscription to a topic.
// Topic can be:
//   - "*" for all events
//   - "domain" for events on any key within one config domain
//   - "domain/key" for events on a single tenant counter
func (b *Broker) Subscribe(topic string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	ch := make(chan PoolEvent, b.bufferSize)

	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[chan PoolEvent]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}

	slog.Debug("new subscription", "topic", topic)
	return &Subscription{
		topic:  topic,
		ch:     ch,
		broker: b,
	}
}

// unsubscribe removes a subscription (internal method).
func (b *Broker) unsubscribe(topic string, ch chan PoolEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[topic]; ok {
		if _, exists := subs[ch]; exists {
			delete(subs, ch)
			close(ch)
			slog.Debug("unsubscribed", "topic", topic)
		}
		// Clean up empty topic map
		if len(subs) == 0 {
			delete(b.subscribers, topic)
		}
	}
}

// Publish sends an event to all matching subscribers.
// Matches subscribers for:
//   - The exact topic (domain/key)
//   - The domain wildcard (domain)
//   - The global wildcard ("*")
func (b *Broker) Publish(event PoolEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	topic := event.Topic()

	// Collect all matching channels
	var channels []chan PoolEvent

	// Exact topic match
	if subs, ok := b.subscribers[topic]; ok {
		for ch := range subs {
			channels = append(channels, ch)
		}
	}

	// Domain wildcard (if topic is domain/key)
	if event.Domain != "" && topic != event.Domain {
		if subs, ok := b.subscribers[event.Domain]; ok {
			for ch := range subs {
				channels = append(channels, ch)
			}
		}
	}

	// Global wildcard
	if subs, ok := b.subscribers["*"]; ok {
		for ch := range subs {
			channels = append(channels, ch)
		}
	}

	// Send to all matching subscribers (non-blocking)
	for _, ch := range channels {
		select {
		case ch <- event:
			// Sent successfully
		default:
			// Channel full, skip to avoid blocking the pool
			slog.Warn("event dropped, subscriber channel full",
				"event_type", event.Type,
				"topic", topic,
			)
		}
	}

	slog.Debug("event published",
		"event_type", event.Type,
		"topic", topic,
		"subscribers", len(channels),
	)
}

// Close closes the broker and all subscriptions.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	for topic, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}

	slog.Info("event broker closed")
}

// Stats returns subscriber counts per topic.
func (b *Broker) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make(map[string]int)
	for topic, subs := range b.subscribers {
		stats[topic] = len(subs)
	}
	return stats
}
