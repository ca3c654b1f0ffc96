// hook_series.go: Sequential side-effect hooks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
)

// SeriesFunc is a callback of a sequential side-effect hook.
type SeriesFunc[P any] func(ctx context.Context, params P) error

// SeriesHook runs its taps strictly in registration order, each one awaited
// before the next starts. No value is threaded between taps.
//
// Used for ordered setup and teardown notifications such as beforeBuild,
// beforeCreateCompiler or closeDevServer.
type SeriesHook[P any] struct {
	baseHook[SeriesFunc[P]]
}

func newSeriesHook[P any](name HookName, deps *runtimeDeps) *SeriesHook[P] {
	h := &SeriesHook[P]{}
	h.rt = newHookRuntime(name, KindSeries, deps)
	return h
}

// Tap appends an anonymous callback.
func (h *SeriesHook[P]) Tap(fn SeriesFunc[P]) {
	h.TapFor("", fn)
}

// TapFor appends a callback attributed to plugin.
func (h *SeriesHook[P]) TapFor(plugin string, fn SeriesFunc[P]) {
	if fn == nil {
		h.ignoreNilTap(plugin)
		return
	}
	h.add(plugin, fn)
}

// Call runs every tap with params. The first failing tap aborts the call: the
// remaining taps are not started and the failure is returned with the tap's
// error as its cause.
func (h *SeriesHook[P]) Call(ctx context.Context, params P) (err error) {
	taps := h.snapshot()
	ctx, finish := h.rt.begin(ctx, len(taps))
	defer func() { finish(err) }()

	for i, t := range taps {
		if err = h.rt.canceled(ctx, i); err != nil {
			return err
		}
		fn := t.fn
		if err = h.rt.runTap(ctx, i, t.plugin, func(ctx context.Context) error {
			return fn(ctx, params)
		}); err != nil {
			return err
		}
	}
	return nil
}
