// hook_waterfall.go: Value-threading hooks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
)

// WaterfallFunc receives the value produced by the previous tap and returns
// the value for the next one. utils is the same for every tap of a call.
type WaterfallFunc[V, U any] func(ctx context.Context, value V, utils U) (V, error)

// WaterfallHook threads a value through its taps in registration order.
//
// A tap may return a "void" value, as decided by the hook's void predicate,
// to leave the current value untouched. For BuildConfig that is a nil map;
// for HTMLTags it is a value whose head and body slices are both nil.
type WaterfallHook[V, U any] struct {
	baseHook[WaterfallFunc[V, U]]
	isVoid func(V) bool
}

// NewWaterfallHook creates a standalone waterfall hook bound to the
// registry's logger, metrics and tracer. isVoid may be nil, in which case
// every returned value replaces the current one.
func NewWaterfallHook[V, U any](r *Registry, name HookName, isVoid func(V) bool) *WaterfallHook[V, U] {
	return newWaterfallHook[V, U](name, r.deps, isVoid)
}

func newWaterfallHook[V, U any](name HookName, deps *runtimeDeps, isVoid func(V) bool) *WaterfallHook[V, U] {
	h := &WaterfallHook[V, U]{isVoid: isVoid}
	h.rt = newHookRuntime(name, KindWaterfall, deps)
	return h
}

// Tap appends an anonymous callback.
func (h *WaterfallHook[V, U]) Tap(fn WaterfallFunc[V, U]) {
	h.TapFor("", fn)
}

// TapFor appends a callback attributed to plugin.
func (h *WaterfallHook[V, U]) TapFor(plugin string, fn WaterfallFunc[V, U]) {
	if fn == nil {
		h.ignoreNilTap(plugin)
		return
	}
	h.add(plugin, fn)
}

// Call threads initial through every tap and returns the final value. With no
// taps the result is initial itself. The first failing tap aborts the call
// and the zero value is returned with the failure.
func (h *WaterfallHook[V, U]) Call(ctx context.Context, initial V, utils U) (result V, err error) {
	taps := h.snapshot()
	ctx, finish := h.rt.begin(ctx, len(taps))
	defer func() { finish(err) }()

	current := initial
	for i, t := range taps {
		if err = h.rt.canceled(ctx, i); err != nil {
			var zero V
			return zero, err
		}
		fn := t.fn
		var next V
		if err = h.rt.runTap(ctx, i, t.plugin, func(ctx context.Context) error {
			var terr error
			next, terr = fn(ctx, current, utils)
			return terr
		}); err != nil {
			var zero V
			return zero, err
		}
		if h.isVoid != nil && h.isVoid(next) {
			continue
		}
		current = next
	}
	return current, nil
}

func isVoidBuildConfig(c BuildConfig) bool { return c == nil }

func isVoidHTMLTags(t HTMLTags) bool { return t.HeadTags == nil && t.BodyTags == nil }
