package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/reduxengine/internal/config"
	"github.com/roach88/reduxengine/internal/counter"
	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/telemetry"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "test-service", config.Config{OTelEnabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	cfg := config.Config{OTelEndpoint: "http://localhost:4318", OTelEnabled: false}

	shutdown, err := telemetry.Setup(context.Background(), "test-service", cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Use a non-routable address so no actual export happens.
	cfg := config.Config{OTelEndpoint: "http://192.0.2.1:4318", OTelEnabled: true}

	shutdown, err := telemetry.Setup(context.Background(), "test-service", cfg)
	require.NoError(t, err)
	// Shutdown should flush cleanly even though the endpoint is unreachable.
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "noop-test", config.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestNewProvider_TracesEngine(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := telemetry.NewProvider(context.Background(), "reduxctl-test", sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := engine.New(counter.Reducers(), counter.Epics(),
		engine.WithTracer[counter.State](tp.Tracer("test")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	_, err = e.DispatchAndWait(ctx, counter.Add{N: 1})
	require.NoError(t, err)
	require.NoError(t, e.Settle(ctx))
	cancel()
	<-errc

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	names := map[string]int{}
	for _, s := range spans {
		names[s.Name()]++
		assert.Contains(t, s.Resource().Attributes(), attribute.String("service.name", "reduxctl-test"))
	}
	assert.Equal(t, 2, names["redux.reduce"])
	assert.Equal(t, 2, names["redux.effects"])
}
