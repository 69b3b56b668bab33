package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is a thin adapter over OpenTelemetry metrics for the C3/C4
// counters named in the domain stack. Grounded on the teacher's
// internal/rag/obs.OtelMetrics (lazily-created, name-cached
// Int64Counters against the global Meter provider). Nil-safe: a nil
// *Metrics (OTEL_ENABLED=false) makes every method a no-op, so call
// sites never need to branch on whether metrics are enabled.
type Metrics struct {
	meter    metric.Meter
	mu       sync.RWMutex
	counters map[string]metric.Int64Counter
}

// NewMetrics returns a *Metrics backed by the global OTel meter provider
// if enabled is true, or nil otherwise.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	return &Metrics{
		meter:    otel.Meter("footballgpt"),
		counters: make(map[string]metric.Int64Counter),
	}
}

// IncCounter adds 1 to the named counter, tagged with labels. A no-op on
// a nil receiver.
func (m *Metrics) IncCounter(name string, labels map[string]string) {
	if m == nil {
		return
	}
	c, ok := m.getCounter(name)
	if !ok {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(toAttrs(labels)...))
}

func (m *Metrics) getCounter(name string) (metric.Int64Counter, bool) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c, true
	}
	ctr, err := m.meter.Int64Counter(name)
	if err != nil {
		return ctr, false
	}
	m.counters[name] = ctr
	return ctr, true
}

func toAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}
