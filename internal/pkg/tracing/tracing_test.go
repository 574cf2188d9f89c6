//go:build unit

package tracing

import (
	"context"
	"testing"

	"tutor-booking/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
