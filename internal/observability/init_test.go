package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bugmatrix/internal/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "bugmatrix.test")
	span.End()

	assert.NotNil(t, ctx)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WithResourceAttributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Run.Version = "1.2.3"
	cfg.Run.Mode = observability.ModeMCP

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Meter)
}

func TestInit_WithEndpoint(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.OTLPEndpoint = "127.0.0.1:1"
	cfg.OTLPInsecure = true
	cfg.ShutdownTimeoutSec = 1
	cfg.Run.Repository = "acme/wallet"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	_, span := providers.Tracer.Start(context.Background(), "bugmatrix.test")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// Nothing listens on the endpoint; Shutdown must still return within the timeout.
	_ = providers.Shutdown(context.Background())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=secret, team = qa")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg := observability.ConfigFromEnv()
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, map[string]string{"api-key": "secret", "team": "qa"}, cfg.OTLPHeaders)
	assert.True(t, cfg.OTLPInsecure)
	assert.Equal(t, observability.ModeCLI, cfg.Run.Mode)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("no-separator"))
	assert.Equal(t, map[string]string{"a": "1"}, observability.ParseOTLPHeaders("a=1,broken"))
}
