// hook_collect.go: Fire-and-collect hooks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
)

// CollectFunc is a callback of a fire-and-collect hook.
type CollectFunc[P, R any] func(ctx context.Context, params P) (R, error)

// CollectHook invokes every tap with the same input and collects the results
// in registration order. Taps are awaited one at a time; they never overlap.
type CollectHook[P, R any] struct {
	baseHook[CollectFunc[P, R]]
}

// NewCollectHook creates a standalone fire-and-collect hook that shares the
// registry's logger, metrics and tracer.
func NewCollectHook[P, R any](r *Registry, name HookName) *CollectHook[P, R] {
	return newCollectHook[P, R](name, r.deps)
}

func newCollectHook[P, R any](name HookName, deps *runtimeDeps) *CollectHook[P, R] {
	h := &CollectHook[P, R]{}
	h.rt = newHookRuntime(name, KindCollect, deps)
	return h
}

// Tap appends an anonymous callback.
func (h *CollectHook[P, R]) Tap(fn CollectFunc[P, R]) {
	h.TapFor("", fn)
}

// TapFor appends a callback attributed to plugin.
func (h *CollectHook[P, R]) TapFor(plugin string, fn CollectFunc[P, R]) {
	if fn == nil {
		h.ignoreNilTap(plugin)
		return
	}
	h.add(plugin, fn)
}

// Call runs every tap with params and returns their results in registration
// order. On the first failure the remaining taps are skipped and no results
// are returned.
func (h *CollectHook[P, R]) Call(ctx context.Context, params P) (results []R, err error) {
	taps := h.snapshot()
	ctx, finish := h.rt.begin(ctx, len(taps))
	defer func() { finish(err) }()

	results = make([]R, 0, len(taps))
	for i, t := range taps {
		if err = h.rt.canceled(ctx, i); err != nil {
			return nil, err
		}
		fn := t.fn
		var result R
		if err = h.rt.runTap(ctx, i, t.plugin, func(ctx context.Context) error {
			var terr error
			result, terr = fn(ctx, params)
			return terr
		}); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// NotifyFunc is a callback of a notification hook.
type NotifyFunc[P any] func(ctx context.Context, params P) error

// NotifyHook is the fire-and-collect form used for lifecycle notifications:
// callbacks return nothing but an error, and Call echoes the parameters back
// so the Host sees exactly what every tap observed.
type NotifyHook[P any] struct {
	inner *CollectHook[P, struct{}]
}

func newNotifyHook[P any](name HookName, deps *runtimeDeps) *NotifyHook[P] {
	return &NotifyHook[P]{inner: newCollectHook[P, struct{}](name, deps)}
}

func (h *NotifyHook[P]) Name() HookName   { return h.inner.Name() }
func (h *NotifyHook[P]) Kind() HookKind   { return h.inner.Kind() }
func (h *NotifyHook[P]) Len() int         { return h.inner.Len() }
func (h *NotifyHook[P]) Taps() []TapInfo  { return h.inner.Taps() }
func (h *NotifyHook[P]) Stats() HookStats { return h.inner.Stats() }

// Tap appends an anonymous callback.
func (h *NotifyHook[P]) Tap(fn NotifyFunc[P]) {
	h.TapFor("", fn)
}

// TapFor appends a callback attributed to plugin.
func (h *NotifyHook[P]) TapFor(plugin string, fn NotifyFunc[P]) {
	if fn == nil {
		h.inner.ignoreNilTap(plugin)
		return
	}
	h.inner.add(plugin, func(ctx context.Context, params P) (struct{}, error) {
		return struct{}{}, fn(ctx, params)
	})
}

// Call notifies every tap and returns params once all of them completed.
func (h *NotifyHook[P]) Call(ctx context.Context, params P) (P, error) {
	if _, err := h.inner.Call(ctx, params); err != nil {
		var zero P
		return zero, err
	}
	return params, nil
}
