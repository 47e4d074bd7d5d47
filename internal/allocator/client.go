// Package allocator provides the client boundary to the remote idgen
// service, which mints batches of globally unique identifiers per
// (domain, key) tenant counter.
package allocator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xuminwlt/j360-idgen/internal/telemetry"
)

// RemoteAllocator is the capability the identifier pool refills from.
// Allocate returns the raw batch as a comma-separated string of tokens,
// exactly as the remote service emits it.
type RemoteAllocator interface {
	Allocate(ctx context.Context, domain, key string, count int) (string, error)
}

// Error is a failed allocation call against the remote service.
type Error struct {
	Status  int    // HTTP status, 0 for transport-level failures
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("allocator: %s", e.Message)
	}
	return fmt.Sprintf("allocator: status %d: %s", e.Status, e.Message)
}

// Config holds remote allocator client configuration.
type Config struct {
	Endpoint string        `mapstructure:"endpoint"` // Base URL of the idgen service
	Timeout  time.Duration `mapstructure:"timeout"`  // Per-request timeout
}

// Client is the HTTP implementation of RemoteAllocator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an allocator client for the given idgen endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("allocator: endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("allocator: parsing endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.Endpoint, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Allocate requests count identifiers for (domain, key) from the remote
// service. The response body is the batch verbatim; callers parse it.
func (c *Client) Allocate(ctx context.Context, domain, key string, count int) (string, error) {
	ctx, span := telemetry.Tracer("allocator").Start(ctx, "allocator.Allocate")
	defer span.End()
	span.SetAttributes(
		attribute.String("idgen.domain", domain),
		attribute.String("idgen.key", key),
		attribute.Int("idgen.count", count),
	)

	q := url.Values{}
	q.Set("domain", domain)
	q.Set("key", key)
	q.Set("count", strconv.Itoa(count))

	reqURL := c.baseURL + "/api/v1/nextId?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("allocator: building request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Request-ID", uuid.New().String())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return "", &Error{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		return "", &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	batch := strings.TrimSpace(string(body))
	if batch == "" {
		span.SetStatus(codes.Error, "empty batch")
		return "", &Error{Status: resp.StatusCode, Message: "empty batch in response"}
	}

	slog.Debug("allocated identifier batch",
		"domain", domain,
		"key", key,
		"count", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return batch, nil
}
