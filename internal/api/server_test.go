package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuminwlt/j360-idgen/internal/config"
	"github.com/xuminwlt/j360-idgen/internal/events"
	"github.com/xuminwlt/j360-idgen/internal/idpool"
)

type stubAllocator struct {
	mu   sync.Mutex
	next int64
}

func (a *stubAllocator) Allocate(_ context.Context, _, _ string, count int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, count)
	for i := range ids {
		a.next++
		ids[i] = strconv.FormatInt(a.next, 10)
	}
	return strings.Join(ids, ","), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	broker := events.NewBroker()
	pools := idpool.NewManager(&stubAllocator{}, broker, idpool.Config{})
	return NewServer(&config.Config{}, pools, broker)
}

func TestServer_Routes(t *testing.T) {
	server := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("ready", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("GET", "/ready", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("GET", "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("borrow round trip", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("POST", "/v1/pools/order-service/order.id/borrow", nil))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		id := body["id"].(string)
		require.NotEmpty(t, id)

		req := httptest.NewRequest("POST", "/v1/pools/order-service/order.id/consume",
			strings.NewReader(`{"id":"`+id+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err = server.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, 204, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("GET", "/v1/unknown", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("event stream requires upgrade", func(t *testing.T) {
		resp, err := server.App().Test(httptest.NewRequest("GET", "/v1/events/stream", nil))
		require.NoError(t, err)
		assert.Equal(t, 426, resp.StatusCode)
	})
}

func TestServer_EventBroker(t *testing.T) {
	server := newTestServer(t)
	assert.NotNil(t, server.EventBroker())
}
