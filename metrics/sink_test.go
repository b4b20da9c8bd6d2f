package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkAgainstNoopProviderDoesNotPanic(t *testing.T) {
	s := NewSink(NewNoopProvider())
	require.NotPanics(t, func() {
		s.Selection("cache", 0, "round-robin")
		s.SetInFlight("cache", 0, 3)
		s.CASRetry("cache", "least-used")
		s.SlowOperation("cache", "GET", 120)
		s.Close("cache")
	})
}

func TestSinkAgainstPrometheusProviderRegistersInstruments(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{})
	s := NewSink(p)

	assert.NotPanics(t, func() {
		s.Selection("cache", 1, "thread-affinity")
		s.SetInFlight("cache", 1, 2)
		s.CASRetry("cache", "thread-affinity")
		s.SlowOperation("cache", "MULTI", 50)
	})

	require.NoError(t, p.Health(context.Background()))
}

func TestSinkWithPrefixRegistersNamespacedInstruments(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{})
	s := NewSink(p, "myapp")

	assert.NotPanics(t, func() {
		s.Selection("cache", 0, "round-robin")
	})
}

func TestSinkCardinalityWarningDoesNotPanic(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{CardinalityLimit: 2})
	s := NewSink(p)

	for i := 0; i < 10; i++ {
		assert.NotPanics(t, func() {
			s.Selection("cache", i, "round-robin")
		})
	}
}
