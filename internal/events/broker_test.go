package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBroker(t *testing.T) {
	broker := NewBroker()
	require.NotNil(t, broker)
	assert.NotNil(t, broker.subscribers)
	assert.Equal(t, 16, broker.bufferSize)
	assert.False(t, broker.closed)
}

func TestBroker_Subscribe(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()

	t.Run("subscribe to tenant topic", func(t *testing.T) {
		sub := broker.Subscribe("order-service/order.id")
		require.NotNil(t, sub)
		assert.Equal(t, "order-service/order.id", sub.topic)
		assert.Same(t, broker, sub.broker)
		assert.NotNil(t, sub.ch)
	})

	t.Run("subscribe to wildcard", func(t *testing.T) {
		sub := broker.Subscribe("*")
		require.NotNil(t, sub)
		assert.Equal(t, "*", sub.topic)
	})

	t.Run("multiple subscriptions same topic", func(t *testing.T) {
		sub1 := broker.Subscribe("same-topic")
		sub2 := broker.Subscribe("same-topic")
		require.NotNil(t, sub1)
		require.NotNil(t, sub2)
		assert.NotEqual(t, sub1, sub2)
	})

	t.Run("subscribe to closed broker returns nil", func(t *testing.T) {
		closedBroker := NewBroker()
		closedBroker.Close()
		sub := closedBroker.Subscribe("test")
		assert.Nil(t, sub)
	})
}

func TestSubscription_Unsubscribe(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()

	sub := broker.Subscribe("order-service")
	require.NotNil(t, sub)

	stats := broker.Stats()
	assert.Equal(t, 1, stats["order-service"])

	sub.Unsubscribe()

	stats = broker.Stats()
	assert.Equal(t, 0, stats["order-service"])
}

func TestBroker_Publish(t *testing.T) {
	t.Run("publish to exact match", func(t *testing.T) {
		broker := NewBroker()
		defer broker.Close()

		sub := broker.Subscribe("order-service/order.id")
		event := PoolEvent{
			Type:   PoolRefilled,
			Domain: "order-service",
			Key:    "order.id",
		}

		broker.Publish(event)

		select {
		case received := <-sub.Events():
			assert.Equal(t, PoolRefilled, received.Type)
			assert.Equal(t, "order-service", received.Domain)
			assert.Equal(t, "order.id", received.Key)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("publish to domain wildcard", func(t *testing.T) {
		broker := NewBroker()
		defer broker.Close()

		sub := broker.Subscribe("order-service")
		broker.Publish(PoolEvent{
			Type:   PoolOverflowDiscarded,
			Domain: "order-service",
			Key:    "order.id",
		})

		select {
		case received := <-sub.Events():
			assert.Equal(t, PoolOverflowDiscarded, received.Type)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("publish to global wildcard", func(t *testing.T) {
		broker := NewBroker()
		defer broker.Close()

		sub := broker.Subscribe("*")
		broker.Publish(PoolEvent{
			Type:   AllocatorFailed,
			Domain: "user-service",
			Key:    "user.id",
		})

		select {
		case received := <-sub.Events():
			assert.Equal(t, AllocatorFailed, received.Type)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("no delivery to unrelated topic", func(t *testing.T) {
		broker := NewBroker()
		defer broker.Close()

		sub := broker.Subscribe("user-service/user.id")
		broker.Publish(PoolEvent{
			Type:   PoolRefilled,
			Domain: "order-service",
			Key:    "order.id",
		})

		select {
		case received := <-sub.Events():
			t.Fatalf("unexpected event: %v", received)
		case <-time.After(50 * time.Millisecond):
			// Expected: nothing delivered
		}
	})

	t.Run("full channel drops instead of blocking", func(t *testing.T) {
		broker := NewBroker()
		defer broker.Close()

		sub := broker.Subscribe("order-service")
		require.NotNil(t, sub)

		// Fill the buffer and then some; Publish must not block.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < broker.bufferSize*2; i++ {
				broker.Publish(PoolEvent{Type: PoolRefilled, Domain: "order-service"})
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publish blocked on full subscriber channel")
		}
	})

	t.Run("publish to closed broker is a no-op", func(t *testing.T) {
		broker := NewBroker()
		broker.Close()
		// Should not panic
		broker.Publish(PoolEvent{Type: PoolRefilled, Domain: "order-service"})
	})
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("order-service")
	require.NotNil(t, sub)

	broker.Close()

	// Channel should be closed
	_, ok := <-sub.Events()
	assert.False(t, ok)

	assert.Empty(t, broker.Stats())
}

func TestBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := broker.Subscribe("*")
			if sub != nil {
				sub.Unsubscribe()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			broker.Publish(PoolEvent{Type: PoolRefilled, Domain: "order-service"})
		}()
	}
	wg.Wait()
}
