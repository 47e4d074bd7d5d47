package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false}, "idpool-agent", "0.1.0")
	assert.NoError(t, err)
	assert.Nil(t, provider)
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	var provider *Provider
	assert.NoError(t, provider.Shutdown(context.Background()))

	provider = &Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracer_NoProvider(t *testing.T) {
	tracer := Tracer("allocator")
	require.NotNil(t, tracer)

	// Spans from the no-op tracer must be safe to use.
	_, span := tracer.Start(context.Background(), "allocator.Allocate")
	span.End()
}
