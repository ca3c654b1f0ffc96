// observability_test.go: Metrics collectors and hook call instrumentation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricKey(t *testing.T) {
	assert.Equal(t, "calls", MetricKey("calls", nil))
	assert.Equal(t, "calls{a=1,b=2}", MetricKey("calls", map[string]string{"b": "2", "a": "1"}))
}

func TestDefaultMetricsCollector(t *testing.T) {
	m := NewDefaultMetricsCollector()
	labels := map[string]string{"hook": "beforeBuild"}

	m.IncrementCounter("calls", labels, 1)
	m.IncrementCounter("calls", labels, 2)
	m.SetGauge("taps", labels, 3)
	m.SetGauge("taps", labels, 4)
	m.RecordHistogram("duration", labels, 0.1)
	m.RecordHistogram("duration", labels, 0.2)

	got := m.GetMetrics()
	assert.Equal(t, int64(3), got["calls{hook=beforeBuild}"])
	assert.Equal(t, float64(4), got["taps{hook=beforeBuild}"])
	assert.Equal(t, []float64{0.1, 0.2}, got["duration{hook=beforeBuild}"])

	// returned histograms are copies
	got["duration{hook=beforeBuild}"].([]float64)[0] = 99
	assert.Equal(t, []float64{0.1, 0.2}, m.GetMetrics()["duration{hook=beforeBuild}"])
}

func TestDefaultMetricsCollector_Concurrent(t *testing.T) {
	m := NewDefaultMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.IncrementCounter("calls", nil, 1)
				m.RecordHistogram("duration", nil, 1)
			}
		}()
	}
	wg.Wait()

	got := m.GetMetrics()
	assert.Equal(t, int64(1000), got["calls"])
	assert.Len(t, got["duration"], 1000)
}

func TestNoOpMetricsCollector(t *testing.T) {
	m := NewNoOpMetricsCollector()
	m.IncrementCounter("calls", nil, 1)
	m.SetGauge("taps", nil, 1)
	m.RecordHistogram("duration", nil, 1)
	assert.Empty(t, m.GetMetrics())
}

func TestPrometheusMetricsCollector_HookCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusMetricsCollector(reg)
	r := NewRegistry(RegistryConfig{Metrics: p, Exit: ExitCoordinatorConfig{Signals: &fakeSignalSource{}}})
	defer r.Close()

	r.AfterBuild().TapFor("ok", func(context.Context, AfterBuildParams) error { return nil })
	_, err := r.AfterBuild().Call(context.Background(), AfterBuildParams{})
	require.NoError(t, err)
	_, err = r.AfterBuild().Call(context.Background(), AfterBuildParams{})
	require.NoError(t, err)

	r.BeforeBuild().TapFor("bad", func(context.Context, BeforeBuildParams) error { return errors.New("boom") })
	require.Error(t, r.BeforeBuild().Call(context.Background(), BeforeBuildParams{}))

	assert.Equal(t, float64(2), testutil.ToFloat64(
		p.counters[MetricCallsTotal].WithLabelValues("afterBuild", "collect", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		p.counters[MetricCallsTotal].WithLabelValues("beforeBuild", "series", OutcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		p.gauges[MetricTaps].WithLabelValues("afterBuild")))

	count, err := testutil.GatherAndCount(reg, MetricCallDuration)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	fallback := p.GetMetrics()
	assert.Equal(t, int64(2), fallback[MetricKey(MetricCallsTotal, map[string]string{
		"hook": "afterBuild", "kind": "collect", "outcome": OutcomeSuccess,
	})])
}

func TestPrometheusMetricsCollector_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusMetricsCollector(reg)
	second := NewPrometheusMetricsCollector(reg)

	web := NewRegistry(RegistryConfig{Name: "web", Metrics: first, Exit: ExitCoordinatorConfig{Signals: &fakeSignalSource{}}})
	defer web.Close()
	node := NewRegistry(RegistryConfig{Name: "node", Metrics: second, Exit: ExitCoordinatorConfig{Signals: &fakeSignalSource{}}})
	defer node.Close()

	for _, r := range []*Registry{web, node, node} {
		_, err := r.AfterBuild().Call(context.Background(), AfterBuildParams{})
		require.NoError(t, err)
	}

	count, err := testutil.GatherAndCount(reg, MetricCallsTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Same(t, first.counters[MetricCallsTotal], second.counters[MetricCallsTotal])
	assert.Equal(t, float64(3), testutil.ToFloat64(
		first.counters[MetricCallsTotal].WithLabelValues("afterBuild", "collect", OutcomeSuccess)))
}

func TestPrometheusMetricsCollector_RegistrationFailureIsLogged(t *testing.T) {
	reg := prometheus.NewRegistry()
	logger := NewTestLogger()
	p := NewPrometheusMetricsCollector(reg).WithLogger(logger)

	// same name, different label set
	require.NoError(t, reg.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buildhooks_conflict_total",
		Help: "buildhooks conflict total",
	}, []string{"other"})))

	p.IncrementCounter("buildhooks_conflict_total", map[string]string{"hook": "afterBuild"}, 1)

	assert.True(t, logger.HasMessage("ERROR", "Failed to register Prometheus metric"))
	assert.NotContains(t, p.counters, "buildhooks_conflict_total")
	assert.Equal(t, int64(1), p.GetMetrics()[MetricKey("buildhooks_conflict_total", map[string]string{"hook": "afterBuild"})])
}

func TestPrometheusMetricsCollector_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusMetricsCollector(reg)
	p.IncrementCounter("buildhooks_plugins_applied_total", map[string]string{"registry": "r-1"}, 3)

	expected := `
# HELP buildhooks_plugins_applied_total buildhooks plugins applied total
# TYPE buildhooks_plugins_applied_total counter
buildhooks_plugins_applied_total{registry="r-1"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "buildhooks_plugins_applied_total"))
}

func TestPrometheusMetricsCollector_NilRegisterer(t *testing.T) {
	p := NewPrometheusMetricsCollector(nil)
	p.SetGauge("buildhooks_taps", map[string]string{"hook": "onExit"}, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(p.gauges["buildhooks_taps"].WithLabelValues("onExit")))
}

func TestHookCall_RecordsMetrics(t *testing.T) {
	r := newTestRegistry(t)
	r.DevCompileDone().TapFor("a", func(context.Context, DevCompileDoneParams) error { return nil })
	r.DevCompileDone().TapFor("b", func(context.Context, DevCompileDoneParams) error { return nil })

	_, err := r.DevCompileDone().Call(context.Background(), DevCompileDoneParams{})
	require.NoError(t, err)

	got := r.metrics.GetMetrics()
	assert.Equal(t, float64(2), got[MetricKey(MetricTaps, map[string]string{"hook": "devCompileDone"})])
	assert.Equal(t, int64(1), got[MetricKey(MetricCallsTotal, map[string]string{
		"hook": "devCompileDone", "kind": "collect", "outcome": OutcomeSuccess,
	})])
	assert.Len(t, got[MetricKey(MetricCallDuration, map[string]string{"hook": "devCompileDone", "kind": "collect"})], 1)
}
