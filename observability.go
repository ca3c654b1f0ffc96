// observability.go: Metrics collection and tracing defaults for hook calls
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// MetricsCollector receives the metrics emitted by hook calls and tap
// registrations.
//
// Metrics recorded by the engine:
//   - buildhooks_calls_total{hook,kind,outcome}: counter, one per Call
//   - buildhooks_call_duration_seconds{hook,kind}: histogram
//   - buildhooks_taps{hook}: gauge, number of registered taps
//
// Example usage:
//
//	collector.IncrementCounter("buildhooks_calls_total",
//	    map[string]string{"hook": "afterBuild", "kind": "collect", "outcome": "success"}, 1)
type MetricsCollector interface {
	// Counter metrics
	IncrementCounter(name string, labels map[string]string, value int64)

	// Gauge metrics
	SetGauge(name string, labels map[string]string, value float64)

	// Histogram metrics
	RecordHistogram(name string, labels map[string]string, value float64)

	// Get current metrics snapshot
	GetMetrics() map[string]interface{}
}

// NoOpMetricsCollector discards every metric.
type NoOpMetricsCollector struct{}

// NewNoOpMetricsCollector returns a collector that records nothing.
func NewNoOpMetricsCollector() MetricsCollector { return NoOpMetricsCollector{} }

func (NoOpMetricsCollector) IncrementCounter(string, map[string]string, int64) {}
func (NoOpMetricsCollector) SetGauge(string, map[string]string, float64)       {}
func (NoOpMetricsCollector) RecordHistogram(string, map[string]string, float64) {}
func (NoOpMetricsCollector) GetMetrics() map[string]interface{} {
	return map[string]interface{}{}
}

// DefaultMetricsCollector keeps metrics in memory, keyed by name and sorted
// labels, e.g. buildhooks_taps{hook=afterBuild}. Counters are int64, gauges
// float64 and histograms []float64 of raw observations.
type DefaultMetricsCollector struct {
	metrics map[string]interface{}
	mu      sync.RWMutex
}

// NewDefaultMetricsCollector creates an empty in-memory collector.
func NewDefaultMetricsCollector() *DefaultMetricsCollector {
	return &DefaultMetricsCollector{
		metrics: make(map[string]interface{}),
	}
}

func (dmc *DefaultMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	key := metricKey(name, labels)
	if current, ok := dmc.metrics[key].(int64); ok {
		dmc.metrics[key] = current + value
		return
	}
	dmc.metrics[key] = value
}

func (dmc *DefaultMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	dmc.metrics[metricKey(name, labels)] = value
}

func (dmc *DefaultMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	key := metricKey(name, labels)
	if current, ok := dmc.metrics[key].([]float64); ok {
		dmc.metrics[key] = append(current, value)
		return
	}
	dmc.metrics[key] = []float64{value}
}

// GetMetrics returns a copy of every recorded metric. Histogram slices are
// copied as well.
func (dmc *DefaultMetricsCollector) GetMetrics() map[string]interface{} {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	result := make(map[string]interface{}, len(dmc.metrics))
	for k, v := range dmc.metrics {
		if obs, ok := v.([]float64); ok {
			v = append([]float64(nil), obs...)
		}
		result[k] = v
	}
	return result
}

// MetricKey returns the key DefaultMetricsCollector stores a metric under.
func MetricKey(name string, labels map[string]string) string {
	return metricKey(name, labels)
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s{%s}", name, strings.Join(parts, ","))
}

// defaultTracer is used when RegistryConfig.Tracer is nil. Spans are created
// and dropped without being exported.
func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("github.com/agilira/go-buildhooks")
}
