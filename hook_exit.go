// hook_exit.go: Best-effort exit hook
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// ExitFunc is a callback of the exit hook.
type ExitFunc func(ctx context.Context) error

// ExitHook runs its taps in registration order while the process is
// terminating. Unlike the other variants a failing or panicking tap never
// stops its siblings, and a done context does not skip any tap: every exit
// callback gets its chance to run.
type ExitHook struct {
	baseHook[ExitFunc]
}

func newExitHook(deps *runtimeDeps) *ExitHook {
	h := &ExitHook{}
	h.rt = newHookRuntime(HookExit, KindExit, deps)
	return h
}

// Tap appends an anonymous callback.
func (h *ExitHook) Tap(fn ExitFunc) {
	h.TapFor("", fn)
}

// TapFor appends a callback attributed to plugin.
func (h *ExitHook) TapFor(plugin string, fn ExitFunc) {
	if fn == nil {
		h.ignoreNilTap(plugin)
		return
	}
	h.add(plugin, fn)
}

// Call runs every exit tap. Each failure is logged as an ExitCallbackFailure
// and the failures are returned combined, in tap order; a nil result means
// every tap succeeded.
func (h *ExitHook) Call(ctx context.Context) (err error) {
	taps := h.snapshot()
	ctx, finish := h.rt.begin(ctx, len(taps))
	defer func() { finish(err) }()

	for i, t := range taps {
		if terr := h.runExitTap(ctx, i, t); terr != nil {
			h.rt.logger.Warn("Exit callback failed",
				"plugin", t.plugin,
				"tap_index", i,
				"error", terr)
			err = multierr.Append(err, terr)
		}
	}
	return err
}

func (h *ExitHook) runExitTap(ctx context.Context, index int, t tap[ExitFunc]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 64<<10)
			n := runtime.Stack(buf, false)
			h.rt.logger.Error("Panic recovered in exit callback",
				"plugin", t.plugin,
				"tap_index", index,
				"panic", r,
				"stack", string(buf[:n]))
			err = NewExitCallbackFailureError(index, t.plugin, fmt.Errorf("panic: %v", r))
		}
	}()

	if cerr := t.fn(ctx); cerr != nil {
		return NewExitCallbackFailureError(index, t.plugin, cerr)
	}
	return nil
}
