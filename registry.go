// registry.go: Per-instance table of lifecycle hooks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.opentelemetry.io/otel/trace"
)

var registrySeq atomic.Uint64

// RegistryConfig configures a Registry. The zero value is usable.
type RegistryConfig struct {
	// Name identifies the registry in logs. Defaults to "buildhooks".
	Name string

	// Bundler is fixed for the registry lifetime. Defaults to rspack.
	Bundler BundlerKind

	Logger  Logger
	Metrics MetricsCollector
	Tracer  trace.Tracer

	// MergeConfig backs PluginAPI.MergeRsbuildConfig and the utils handed to
	// modifyRsbuildConfig taps. Defaults to MergeBuildConfigs.
	MergeConfig MergeConfigFunc

	Exit ExitCoordinatorConfig
}

// Registry owns exactly one hook per lifecycle point. Hooks are created when
// the registry is constructed and stay the same objects for its lifetime;
// registries never share hooks or taps.
type Registry struct {
	id      string
	bundler BundlerKind
	logger  Logger
	deps    *runtimeDeps
	merge   MergeConfigFunc
	table   cmap.ConcurrentMap[string, Hook]
	exit    *ExitCoordinator

	beforeBuild           *SeriesHook[BeforeBuildParams]
	afterBuild            *NotifyHook[AfterBuildParams]
	beforeCreateCompiler  *SeriesHook[BeforeCreateCompilerParams]
	afterCreateCompiler   *SeriesHook[AfterCreateCompilerParams]
	devCompileDone        *NotifyHook[DevCompileDoneParams]
	beforeStartDevServer  *SeriesHook[struct{}]
	afterStartDevServer   *NotifyHook[StartServerParams]
	beforeStartProdServer *SeriesHook[struct{}]
	afterStartProdServer  *NotifyHook[StartServerParams]
	closeDevServer        *SeriesHook[struct{}]
	modifyHTMLTags        *WaterfallHook[HTMLTags, ModifyHTMLTagsContext]
	modifyRsbuildConfig   *WaterfallHook[BuildConfig, ModifyConfigUtils]
	modifyBundlerChain    *SeriesHook[ModifyBundlerChainParams]
	exitHook              *ExitHook

	pluginsMu sync.Mutex
	plugins   []string
}

// NewRegistry creates a registry with every hook in place and no taps.
func NewRegistry(config RegistryConfig) *Registry {
	name := strings.TrimSpace(config.Name)
	if name == "" {
		name = "buildhooks"
	}
	bundler := config.Bundler
	if bundler == "" {
		bundler = BundlerRspack
	}
	logger := config.Logger
	if logger == nil {
		logger = DefaultLogger()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewNoOpMetricsCollector()
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = defaultTracer()
	}
	merge := config.MergeConfig
	if merge == nil {
		merge = MergeBuildConfigs
	}

	id := fmt.Sprintf("%s-%d", name, registrySeq.Add(1))
	logger = logger.With("registry", id)

	r := &Registry{
		id:      id,
		bundler: bundler,
		logger:  logger,
		merge:   merge,
		table:   cmap.New[Hook](),
		deps: &runtimeDeps{
			logger:  logger,
			metrics: metrics,
			tracer:  tracer,
			sealed:  &atomic.Bool{},
		},
	}

	r.beforeBuild = newSeriesHook[BeforeBuildParams](HookBeforeBuild, r.deps)
	r.afterBuild = newNotifyHook[AfterBuildParams](HookAfterBuild, r.deps)
	r.beforeCreateCompiler = newSeriesHook[BeforeCreateCompilerParams](HookBeforeCreateCompiler, r.deps)
	r.afterCreateCompiler = newSeriesHook[AfterCreateCompilerParams](HookAfterCreateCompiler, r.deps)
	r.devCompileDone = newNotifyHook[DevCompileDoneParams](HookDevCompileDone, r.deps)
	r.beforeStartDevServer = newSeriesHook[struct{}](HookBeforeStartDevServer, r.deps)
	r.afterStartDevServer = newNotifyHook[StartServerParams](HookAfterStartDevServer, r.deps)
	r.beforeStartProdServer = newSeriesHook[struct{}](HookBeforeStartProdServer, r.deps)
	r.afterStartProdServer = newNotifyHook[StartServerParams](HookAfterStartProdServer, r.deps)
	r.closeDevServer = newSeriesHook[struct{}](HookCloseDevServer, r.deps)
	r.modifyHTMLTags = newWaterfallHook[HTMLTags, ModifyHTMLTagsContext](HookModifyHTMLTags, r.deps, isVoidHTMLTags)
	r.modifyRsbuildConfig = newWaterfallHook[BuildConfig, ModifyConfigUtils](HookModifyRsbuildConfig, r.deps, isVoidBuildConfig)
	r.modifyBundlerChain = newSeriesHook[ModifyBundlerChainParams](HookModifyBundlerChain, r.deps)
	r.exitHook = newExitHook(r.deps)

	for _, h := range []Hook{
		r.beforeBuild, r.afterBuild,
		r.beforeCreateCompiler, r.afterCreateCompiler,
		r.devCompileDone,
		r.beforeStartDevServer, r.afterStartDevServer,
		r.beforeStartProdServer, r.afterStartProdServer,
		r.closeDevServer,
		r.modifyHTMLTags, r.modifyRsbuildConfig, r.modifyBundlerChain,
		r.exitHook,
	} {
		r.table.Set(string(h.Name()), h)
	}

	r.exit = NewExitCoordinator(r.exitHook, logger, config.Exit)

	logger.Debug("Registry created", "bundler", string(bundler), "hooks", r.table.Count())
	return r
}

// ID returns the registry identifier used in logs.
func (r *Registry) ID() string { return r.id }

// Bundler returns the bundler kind fixed at construction.
func (r *Registry) Bundler() BundlerKind { return r.bundler }

// Logger returns the registry logger.
func (r *Registry) Logger() Logger { return r.logger }

// HookFor returns the hook registered under name.
func (r *Registry) HookFor(name string) (Hook, error) {
	h, ok := r.table.Get(name)
	if !ok {
		return nil, NewUnknownHookError(name)
	}
	return h, nil
}

// HookNames lists every hook of the registry in lifecycle order.
func (r *Registry) HookNames() []HookName {
	names := AllHookNames()
	out := names[:0]
	for _, n := range names {
		if r.table.Has(string(n)) {
			out = append(out, n)
		}
	}
	return out
}

func (r *Registry) BeforeBuild() *SeriesHook[BeforeBuildParams] { return r.beforeBuild }
func (r *Registry) AfterBuild() *NotifyHook[AfterBuildParams]   { return r.afterBuild }
func (r *Registry) BeforeCreateCompiler() *SeriesHook[BeforeCreateCompilerParams] {
	return r.beforeCreateCompiler
}
func (r *Registry) AfterCreateCompiler() *SeriesHook[AfterCreateCompilerParams] {
	return r.afterCreateCompiler
}
func (r *Registry) DevCompileDone() *NotifyHook[DevCompileDoneParams] { return r.devCompileDone }
func (r *Registry) BeforeStartDevServer() *SeriesHook[struct{}]       { return r.beforeStartDevServer }
func (r *Registry) AfterStartDevServer() *NotifyHook[StartServerParams] {
	return r.afterStartDevServer
}
func (r *Registry) BeforeStartProdServer() *SeriesHook[struct{}] { return r.beforeStartProdServer }
func (r *Registry) AfterStartProdServer() *NotifyHook[StartServerParams] {
	return r.afterStartProdServer
}
func (r *Registry) CloseDevServer() *SeriesHook[struct{}] { return r.closeDevServer }
func (r *Registry) ModifyHTMLTags() *WaterfallHook[HTMLTags, ModifyHTMLTagsContext] {
	return r.modifyHTMLTags
}
func (r *Registry) ModifyRsbuildConfig() *WaterfallHook[BuildConfig, ModifyConfigUtils] {
	return r.modifyRsbuildConfig
}
func (r *Registry) ModifyBundlerChain() *SeriesHook[ModifyBundlerChainParams] {
	return r.modifyBundlerChain
}
func (r *Registry) Exit() *ExitHook { return r.exitHook }

// ExitCoordinator returns the coordinator driving the exit hook.
func (r *Registry) ExitCoordinator() *ExitCoordinator { return r.exit }

// ConfigUtils returns the utils handed to modifyRsbuildConfig taps.
func (r *Registry) ConfigUtils() ModifyConfigUtils {
	return ModifyConfigUtils{MergeRsbuildConfig: r.merge}
}

// ApplyPlugins runs Setup of every plugin once, synchronously and in order.
// The first invalid name, duplicate name or failing Setup stops the setup
// phase; plugins already set up keep their taps. Once all plugins are set
// up the registry is sealed and further taps are reported as late.
func (r *Registry) ApplyPlugins(plugins ...Plugin) error {
	r.pluginsMu.Lock()
	defer r.pluginsMu.Unlock()

	r.deps.sealed.Store(false)
	defer r.deps.sealed.Store(true)

	for _, p := range plugins {
		if p == nil {
			continue
		}
		name := strings.TrimSpace(p.Name())
		if name == "" {
			return NewInvalidPluginNameError(p.Name())
		}
		for _, existing := range r.plugins {
			if existing == name {
				return NewDuplicatePluginNameError(name)
			}
		}

		if err := r.setupPlugin(name, p); err != nil {
			r.logger.Error("Plugin setup failed", "plugin", name, "error", err)
			return err
		}
		r.plugins = append(r.plugins, name)
		r.logger.Info("Plugin applied", "plugin", name)
	}
	return nil
}

func (r *Registry) setupPlugin(name string, p Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewPluginSetupFailedError(name, fmt.Errorf("panic: %v", rec))
		}
	}()
	if serr := p.Setup(newPluginAPI(r, name)); serr != nil {
		return NewPluginSetupFailedError(name, serr)
	}
	return nil
}

// Plugins returns the names of the applied plugins in setup order.
func (r *Registry) Plugins() []string {
	r.pluginsMu.Lock()
	defer r.pluginsMu.Unlock()
	out := make([]string, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Sealed reports whether plugin setup has completed.
func (r *Registry) Sealed() bool { return r.deps.sealed.Load() }

// Close removes the exit subscription, if any.
func (r *Registry) Close() {
	r.exit.Close()
}
