// plugin_api.go: Registration surface handed to plugins during setup
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
)

// PluginAPI is the per-plugin view of a Registry. Every On* method appends a
// tap attributed to the plugin; the methods are thin wrappers over the typed
// hook accessors and add no ordering of their own.
type PluginAPI struct {
	registry *Registry
	name     string
	logger   Logger
}

func newPluginAPI(r *Registry, name string) *PluginAPI {
	return &PluginAPI{
		registry: r,
		name:     name,
		logger:   r.logger.With("plugin", name),
	}
}

// PluginName returns the name of the plugin this API belongs to.
func (a *PluginAPI) PluginName() string { return a.name }

// Logger returns a logger scoped to the plugin.
func (a *PluginAPI) Logger() Logger { return a.logger }

// Bundler returns the registry's bundler kind.
func (a *PluginAPI) Bundler() BundlerKind { return a.registry.bundler }

// MergeRsbuildConfig merges configs with the Host-supplied merge function.
func (a *PluginAPI) MergeRsbuildConfig(configs ...BuildConfig) BuildConfig {
	return a.registry.merge(configs...)
}

func (a *PluginAPI) OnBeforeBuild(fn SeriesFunc[BeforeBuildParams]) {
	a.registry.beforeBuild.TapFor(a.name, fn)
}

func (a *PluginAPI) OnAfterBuild(fn NotifyFunc[AfterBuildParams]) {
	a.registry.afterBuild.TapFor(a.name, fn)
}

func (a *PluginAPI) OnBeforeCreateCompiler(fn SeriesFunc[BeforeCreateCompilerParams]) {
	a.registry.beforeCreateCompiler.TapFor(a.name, fn)
}

func (a *PluginAPI) OnAfterCreateCompiler(fn SeriesFunc[AfterCreateCompilerParams]) {
	a.registry.afterCreateCompiler.TapFor(a.name, fn)
}

func (a *PluginAPI) OnDevCompileDone(fn NotifyFunc[DevCompileDoneParams]) {
	a.registry.devCompileDone.TapFor(a.name, fn)
}

func (a *PluginAPI) OnBeforeStartDevServer(fn func(ctx context.Context) error) {
	a.registry.beforeStartDevServer.TapFor(a.name, noParams(fn))
}

func (a *PluginAPI) OnAfterStartDevServer(fn NotifyFunc[StartServerParams]) {
	a.registry.afterStartDevServer.TapFor(a.name, fn)
}

func (a *PluginAPI) OnBeforeStartProdServer(fn func(ctx context.Context) error) {
	a.registry.beforeStartProdServer.TapFor(a.name, noParams(fn))
}

func (a *PluginAPI) OnAfterStartProdServer(fn NotifyFunc[StartServerParams]) {
	a.registry.afterStartProdServer.TapFor(a.name, fn)
}

func (a *PluginAPI) OnCloseDevServer(fn func(ctx context.Context) error) {
	a.registry.closeDevServer.TapFor(a.name, noParams(fn))
}

// ModifyHTMLTags taps the modifyHTMLTags waterfall. Returning HTMLTags with
// both slices nil keeps the current tags.
func (a *PluginAPI) ModifyHTMLTags(fn WaterfallFunc[HTMLTags, ModifyHTMLTagsContext]) {
	a.registry.modifyHTMLTags.TapFor(a.name, fn)
}

// ModifyRsbuildConfig taps the modifyRsbuildConfig waterfall. Returning a nil
// BuildConfig keeps the current config.
func (a *PluginAPI) ModifyRsbuildConfig(fn WaterfallFunc[BuildConfig, ModifyConfigUtils]) {
	a.registry.modifyRsbuildConfig.TapFor(a.name, fn)
}

func (a *PluginAPI) ModifyBundlerChain(fn SeriesFunc[ModifyBundlerChainParams]) {
	a.registry.modifyBundlerChain.TapFor(a.name, fn)
}

// OnExit taps the exit hook and makes sure the registry's ExitCoordinator is
// subscribed to process termination.
func (a *PluginAPI) OnExit(fn ExitFunc) {
	a.registry.exit.Init()
	a.registry.exitHook.TapFor(a.name, fn)
}

func noParams(fn func(ctx context.Context) error) SeriesFunc[struct{}] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, _ struct{}) error { return fn(ctx) }
}
