// observability_prometheus.go: MetricsCollector backed by client_golang
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsCollector exports hook metrics through a Prometheus
// registerer. Vectors are created lazily on first use; the label names of a
// metric are fixed by that first use, and later observations with a different
// label set are dropped.
type PrometheusMetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labelNames map[string][]string
	fallback   *DefaultMetricsCollector
	logger     Logger
}

// NewPrometheusMetricsCollector registers metrics with reg. A nil reg uses a
// fresh prometheus.Registry.
func NewPrometheusMetricsCollector(reg prometheus.Registerer) *PrometheusMetricsCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusMetricsCollector{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelNames: make(map[string][]string),
		fallback:   NewDefaultMetricsCollector(),
		logger:     DefaultLogger(),
	}
}

// WithLogger sets the logger that reports registration failures and returns
// p.
func (p *PrometheusMetricsCollector) WithLogger(logger Logger) *PrometheusMetricsCollector {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// registerVec registers vec with reg. When an identical vector is already
// registered, for example by the collector of another registry sharing reg,
// that vector is returned instead.
func registerVec[V prometheus.Collector](reg prometheus.Registerer, vec V) (V, error) {
	err := reg.Register(vec)
	if err == nil {
		return vec, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(V); ok {
			return existing, nil
		}
	}
	return vec, err
}

func (p *PrometheusMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	p.fallback.IncrementCounter(name, labels, value)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.counters[name]
	if !ok {
		names := sortedLabelNames(labels)
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: helpFor(name),
		}, names)
		registered, err := registerVec(p.registerer, vec)
		if err != nil {
			p.logger.Error("Failed to register Prometheus metric", "metric", name, "error", err)
			return
		}
		vec = registered
		p.counters[name] = vec
		p.labelNames[name] = names
	}
	if c, err := vec.GetMetricWith(p.labelsFor(name, labels)); err == nil {
		c.Add(float64(value))
	}
}

func (p *PrometheusMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	p.fallback.SetGauge(name, labels, value)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.gauges[name]
	if !ok {
		names := sortedLabelNames(labels)
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: helpFor(name),
		}, names)
		registered, err := registerVec(p.registerer, vec)
		if err != nil {
			p.logger.Error("Failed to register Prometheus metric", "metric", name, "error", err)
			return
		}
		vec = registered
		p.gauges[name] = vec
		p.labelNames[name] = names
	}
	if g, err := vec.GetMetricWith(p.labelsFor(name, labels)); err == nil {
		g.Set(value)
	}
}

func (p *PrometheusMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	p.fallback.RecordHistogram(name, labels, value)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.histograms[name]
	if !ok {
		names := sortedLabelNames(labels)
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    helpFor(name),
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, names)
		registered, err := registerVec(p.registerer, vec)
		if err != nil {
			p.logger.Error("Failed to register Prometheus metric", "metric", name, "error", err)
			return
		}
		vec = registered
		p.histograms[name] = vec
		p.labelNames[name] = names
	}
	if h, err := vec.GetMetricWith(p.labelsFor(name, labels)); err == nil {
		h.Observe(value)
	}
}

// GetMetrics returns the same snapshot DefaultMetricsCollector would.
func (p *PrometheusMetricsCollector) GetMetrics() map[string]interface{} {
	return p.fallback.GetMetrics()
}

// labelsFor projects labels on the names the vector was created with; the
// caller holds p.mu. Missing labels become empty strings so GetMetricWith
// only fails on extra labels.
func (p *PrometheusMetricsCollector) labelsFor(name string, labels map[string]string) prometheus.Labels {
	names := p.labelNames[name]
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = labels[n]
	}
	for k := range labels {
		if _, ok := out[k]; !ok {
			out[k] = labels[k]
		}
	}
	return out
}

func sortedLabelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func helpFor(name string) string {
	switch name {
	case MetricCallsTotal:
		return "Number of hook calls by hook, kind and outcome."
	case MetricCallDuration:
		return "Duration of hook calls in seconds."
	case MetricTaps:
		return "Number of taps registered on a hook."
	default:
		return strings.ReplaceAll(name, "_", " ")
	}
}
