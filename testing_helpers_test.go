// testing_helpers_test.go: Shared fixtures for registry and hook tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"testing"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/require"
)

// fakeSignalSource delivers signals on demand instead of from the OS.
type fakeSignalSource struct {
	mu          sync.Mutex
	chans       []chan<- os.Signal
	notifyCalls int
	stopCalls   int
	raised      []os.Signal
}

func (f *fakeSignalSource) Notify(ch chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chans = append(f.chans, ch)
	f.notifyCalls++
}

func (f *fakeSignalSource) Stop(ch chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	kept := f.chans[:0]
	for _, c := range f.chans {
		if c != ch {
			kept = append(kept, c)
		}
	}
	f.chans = kept
}

// Send delivers sig without blocking, like os/signal does.
func (f *fakeSignalSource) Send(sig os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.chans {
		select {
		case ch <- sig:
		default:
		}
	}
}

// Raise records sig instead of signalling the test process.
func (f *fakeSignalSource) Raise(sig os.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised = append(f.raised, sig)
	return nil
}

func (f *fakeSignalSource) Raised() []os.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]os.Signal(nil), f.raised...)
}

func (f *fakeSignalSource) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chans)
}

type testRegistry struct {
	*Registry
	logger  *TestLogger
	signals *fakeSignalSource
	metrics *DefaultMetricsCollector
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	logger := NewTestLogger()
	signals := &fakeSignalSource{}
	metrics := NewDefaultMetricsCollector()
	r := NewRegistry(RegistryConfig{
		Name:    "test",
		Logger:  logger,
		Metrics: metrics,
		Exit:    ExitCoordinatorConfig{Signals: signals},
	})
	t.Cleanup(r.Close)
	return &testRegistry{Registry: r, logger: logger, signals: signals, metrics: metrics}
}

// requireHookError asserts err is a go-errors error with the given code.
func requireHookError(t *testing.T, err error, code string) *goerrors.Error {
	t.Helper()
	require.Error(t, err)
	var hookErr *goerrors.Error
	require.True(t, stderrors.As(err, &hookErr), "expected *errors.Error, got %T", err)
	require.Equal(t, goerrors.ErrorCode(code), hookErr.ErrorCode())
	return hookErr
}

// hookDriver taps and calls one lifecycle point through the public API.
type hookDriver struct {
	tap  func(api *PluginAPI, fn func(ctx context.Context) error)
	call func(ctx context.Context, r *Registry) error
}

func hookDrivers() map[HookName]hookDriver {
	return map[HookName]hookDriver{
		HookBeforeBuild: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnBeforeBuild(func(ctx context.Context, _ BeforeBuildParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				return r.BeforeBuild().Call(ctx, BeforeBuildParams{Bundler: r.Bundler()})
			},
		},
		HookAfterBuild: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnAfterBuild(func(ctx context.Context, _ AfterBuildParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.AfterBuild().Call(ctx, AfterBuildParams{IsFirstCompile: true})
				return err
			},
		},
		HookBeforeCreateCompiler: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnBeforeCreateCompiler(func(ctx context.Context, _ BeforeCreateCompilerParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				return r.BeforeCreateCompiler().Call(ctx, BeforeCreateCompilerParams{})
			},
		},
		HookAfterCreateCompiler: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnAfterCreateCompiler(func(ctx context.Context, _ AfterCreateCompilerParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				return r.AfterCreateCompiler().Call(ctx, AfterCreateCompilerParams{})
			},
		},
		HookDevCompileDone: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnDevCompileDone(func(ctx context.Context, _ DevCompileDoneParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.DevCompileDone().Call(ctx, DevCompileDoneParams{})
				return err
			},
		},
		HookBeforeStartDevServer: {
			tap: func(api *PluginAPI, fn func(context.Context) error) { api.OnBeforeStartDevServer(fn) },
			call: func(ctx context.Context, r *Registry) error {
				return r.BeforeStartDevServer().Call(ctx, struct{}{})
			},
		},
		HookAfterStartDevServer: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnAfterStartDevServer(func(ctx context.Context, _ StartServerParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.AfterStartDevServer().Call(ctx, StartServerParams{Port: 3000})
				return err
			},
		},
		HookBeforeStartProdServer: {
			tap: func(api *PluginAPI, fn func(context.Context) error) { api.OnBeforeStartProdServer(fn) },
			call: func(ctx context.Context, r *Registry) error {
				return r.BeforeStartProdServer().Call(ctx, struct{}{})
			},
		},
		HookAfterStartProdServer: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.OnAfterStartProdServer(func(ctx context.Context, _ StartServerParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.AfterStartProdServer().Call(ctx, StartServerParams{Port: 8080})
				return err
			},
		},
		HookCloseDevServer: {
			tap: func(api *PluginAPI, fn func(context.Context) error) { api.OnCloseDevServer(fn) },
			call: func(ctx context.Context, r *Registry) error {
				return r.CloseDevServer().Call(ctx, struct{}{})
			},
		},
		HookModifyHTMLTags: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.ModifyHTMLTags(func(ctx context.Context, tags HTMLTags, _ ModifyHTMLTagsContext) (HTMLTags, error) {
					return tags, fn(ctx)
				})
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.ModifyHTMLTags().Call(ctx, HTMLTags{}, ModifyHTMLTagsContext{Filename: "index.html"})
				return err
			},
		},
		HookModifyRsbuildConfig: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.ModifyRsbuildConfig(func(ctx context.Context, cfg BuildConfig, _ ModifyConfigUtils) (BuildConfig, error) {
					return cfg, fn(ctx)
				})
			},
			call: func(ctx context.Context, r *Registry) error {
				_, err := r.ModifyRsbuildConfig().Call(ctx, BuildConfig{}, r.ConfigUtils())
				return err
			},
		},
		HookModifyBundlerChain: {
			tap: func(api *PluginAPI, fn func(context.Context) error) {
				api.ModifyBundlerChain(func(ctx context.Context, _ ModifyBundlerChainParams) error { return fn(ctx) })
			},
			call: func(ctx context.Context, r *Registry) error {
				return r.ModifyBundlerChain().Call(ctx, ModifyBundlerChainParams{})
			},
		},
		HookExit: {
			tap: func(api *PluginAPI, fn func(context.Context) error) { api.OnExit(fn) },
			call: func(ctx context.Context, r *Registry) error {
				return r.Exit().Call(ctx)
			},
		},
	}
}
