// hook.go: Tap storage and the invocation runtime shared by every hook variant
//
// A hook owns an ordered list of taps for one lifecycle point. Registration
// order is the only ordering key: there are no priorities, and taps of one
// hook never run concurrently. Every Call works on a snapshot of the tap list
// taken when the call starts, so a tap registered while a call is in flight
// only takes effect for later calls.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	stderrors "errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metric names recorded by every hook call.
const (
	MetricCallsTotal   = "buildhooks_calls_total"
	MetricCallDuration = "buildhooks_call_duration_seconds"
	MetricTaps         = "buildhooks_taps"
)

// Call outcomes used as the "outcome" metric label.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Hook is the untyped view of a lifecycle point, as returned by Registry.HookFor.
// Tapping and calling go through the typed accessors.
type Hook interface {
	Name() HookName
	Kind() HookKind
	Len() int
	Taps() []TapInfo
	Stats() HookStats
}

// TapInfo describes one registered callback.
type TapInfo struct {
	Index        int       `json:"index"`
	Plugin       string    `json:"plugin"`
	RegisteredAt time.Time `json:"registered_at"`
}

// HookStats is a snapshot of a hook's invocation history.
type HookStats struct {
	Calls        int64         `json:"calls"`
	Failures     int64         `json:"failures"`
	LastCallAt   time.Time     `json:"last_call_at"`
	LastDuration time.Duration `json:"last_duration"`
}

type tap[F any] struct {
	plugin       string
	registeredAt time.Time
	fn           F
}

// runtimeDeps are shared by all hooks of one registry.
type runtimeDeps struct {
	logger  Logger
	metrics MetricsCollector
	tracer  trace.Tracer
	sealed  *atomic.Bool
}

// hookRuntime carries the per-hook state every variant needs: identity,
// observability and statistics.
type hookRuntime struct {
	name   HookName
	kind   HookKind
	deps   *runtimeDeps
	logger Logger

	statsMu sync.Mutex
	stats   HookStats
}

func newHookRuntime(name HookName, kind HookKind, deps *runtimeDeps) *hookRuntime {
	return &hookRuntime{
		name:   name,
		kind:   kind,
		deps:   deps,
		logger: deps.logger.With("hook", string(name)),
	}
}

// baseHook stores taps of callback type F.
type baseHook[F any] struct {
	rt   *hookRuntime
	mu   sync.RWMutex
	taps []tap[F]
}

func (b *baseHook[F]) Name() HookName { return b.rt.name }
func (b *baseHook[F]) Kind() HookKind { return b.rt.kind }

// Len returns the number of registered taps.
func (b *baseHook[F]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.taps)
}

// Taps describes the registered taps in invocation order.
func (b *baseHook[F]) Taps() []TapInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TapInfo, len(b.taps))
	for i, t := range b.taps {
		out[i] = TapInfo{Index: i, Plugin: t.plugin, RegisteredAt: t.registeredAt}
	}
	return out
}

// Stats returns the hook's invocation statistics.
func (b *baseHook[F]) Stats() HookStats {
	b.rt.statsMu.Lock()
	defer b.rt.statsMu.Unlock()
	return b.rt.stats
}

func (b *baseHook[F]) add(plugin string, fn F) {
	b.mu.Lock()
	b.taps = append(b.taps, tap[F]{
		plugin:       plugin,
		registeredAt: timecache.CachedTime(),
		fn:           fn,
	})
	count := len(b.taps)
	b.mu.Unlock()

	if b.rt.deps.sealed != nil && b.rt.deps.sealed.Load() {
		// Late taps still work but run after everything registered during setup.
		b.rt.logger.Warn("Tap registered after plugin setup",
			"plugin", plugin,
			"position", count-1)
	} else {
		b.rt.logger.Debug("Tap registered", "plugin", plugin, "position", count-1)
	}
	b.rt.deps.metrics.SetGauge(MetricTaps, map[string]string{"hook": string(b.rt.name)}, float64(count))
}

func (b *baseHook[F]) ignoreNilTap(plugin string) {
	b.rt.logger.Debug("Ignoring nil tap", "plugin", plugin)
}

func (b *baseHook[F]) snapshot() []tap[F] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]tap[F], len(b.taps))
	copy(out, b.taps)
	return out
}

// begin opens the span and returns the context handed to taps together with
// the function that records the outcome of the call.
func (rt *hookRuntime) begin(ctx context.Context, tapCount int) (context.Context, func(err error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := rt.deps.tracer.Start(ctx, "buildhooks."+string(rt.name),
		trace.WithAttributes(
			attribute.String("hook.name", string(rt.name)),
			attribute.String("hook.kind", rt.kind.String()),
			attribute.Int("hook.taps", tapCount),
		))
	ctx = ContextWithLogger(ctx, rt.logger)

	rt.logger.Debug("Calling hook", "taps", tapCount)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := outcomeOf(err)

		rt.statsMu.Lock()
		rt.stats.Calls++
		if err != nil {
			rt.stats.Failures++
		}
		rt.stats.LastCallAt = timecache.CachedTime()
		rt.stats.LastDuration = elapsed
		rt.statsMu.Unlock()

		rt.deps.metrics.IncrementCounter(MetricCallsTotal, map[string]string{
			"hook":    string(rt.name),
			"kind":    rt.kind.String(),
			"outcome": outcome,
		}, 1)
		rt.deps.metrics.RecordHistogram(MetricCallDuration, map[string]string{
			"hook": string(rt.name),
			"kind": rt.kind.String(),
		}, elapsed.Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if rt.kind != KindExit {
				rt.logger.Error("Hook call failed", "error", err, "duration", elapsed)
			}
		} else {
			rt.logger.Debug("Hook call completed", "duration", elapsed)
		}
		span.End()
	}
}

// canceled reports a done context before tap index starts.
func (rt *hookRuntime) canceled(ctx context.Context, index int) error {
	if cerr := ctx.Err(); cerr != nil {
		return NewCallCanceledError(rt.name, index, cerr)
	}
	return nil
}

// runTap invokes one tap, converting a returned error into a CallbackFailure
// and a panic into a CallbackPanic. The tap's own error is kept as the cause.
func (rt *hookRuntime) runTap(ctx context.Context, index int, plugin string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 64<<10)
			n := runtime.Stack(buf, false)
			rt.logger.Error("Panic recovered in hook callback",
				"plugin", plugin,
				"tap_index", index,
				"panic", r,
				"stack", string(buf[:n]))
			err = NewCallbackPanicError(rt.name, index, plugin, r)
		}
	}()

	if cerr := fn(ctx); cerr != nil {
		return NewCallbackFailureError(rt.name, index, plugin, cerr)
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var hookErr *goerrors.Error
	if stderrors.As(err, &hookErr) && hookErr.Code == ErrCodeCallCanceled {
		return OutcomeCanceled
	}
	return OutcomeFailure
}
