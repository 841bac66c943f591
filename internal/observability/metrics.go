package observability

import (
	"context"
	"sync"
	"time"
)

// Metrics collects routing and invocation metrics.
type Metrics interface {
	RecordRoute(ctx context.Context, labels RouteLabels)
	RecordInvocation(ctx context.Context, duration time.Duration, labels InvocationLabels)
}

// RouteLabels contains routing decision dimensions.
type RouteLabels struct {
	Router    string
	Selection string
	Status    string
}

// InvocationLabels contains model invocation dimensions.
type InvocationLabels struct {
	Model  string
	Status string
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRoute(context.Context, RouteLabels)                          {}
func (NopMetrics) RecordInvocation(context.Context, time.Duration, InvocationLabels) {}

// InMemoryMetrics keeps counters in process memory.
type InMemoryMetrics struct {
	mu          sync.Mutex
	selections  map[string]int
	routeErrors int
	invocations map[string]int
	failures    map[string]int
	latency     map[string]time.Duration
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		selections:  make(map[string]int),
		invocations: make(map[string]int),
		failures:    make(map[string]int),
		latency:     make(map[string]time.Duration),
	}
}

func (m *InMemoryMetrics) RecordRoute(_ context.Context, labels RouteLabels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if labels.Status == StatusError {
		m.routeErrors++
		return
	}
	m.selections[labels.Selection]++
}

func (m *InMemoryMetrics) RecordInvocation(_ context.Context, duration time.Duration, labels InvocationLabels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations[labels.Model]++
	m.latency[labels.Model] += duration
	if labels.Status == StatusError {
		m.failures[labels.Model]++
	}
}

// Stats is a point-in-time copy of the counters.
type Stats struct {
	Selections   map[string]int     `json:"selections"`
	RouteErrors  int                `json:"route_errors"`
	Invocations  map[string]int     `json:"invocations"`
	Failures     map[string]int     `json:"failures"`
	AvgLatencyMs map[string]float64 `json:"avg_latency_ms"`
}

// Snapshot copies the current counters.
func (m *InMemoryMetrics) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Selections:   make(map[string]int, len(m.selections)),
		RouteErrors:  m.routeErrors,
		Invocations:  make(map[string]int, len(m.invocations)),
		Failures:     make(map[string]int, len(m.failures)),
		AvgLatencyMs: make(map[string]float64, len(m.latency)),
	}
	for k, v := range m.selections {
		s.Selections[k] = v
	}
	for k, v := range m.invocations {
		s.Invocations[k] = v
		s.AvgLatencyMs[k] = float64(m.latency[k].Microseconds()) / 1000 / float64(v)
	}
	for k, v := range m.failures {
		s.Failures[k] = v
	}
	return s
}

// Reset clears all counters.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.selections)
	clear(m.invocations)
	clear(m.failures)
	clear(m.latency)
	m.routeErrors = 0
}
