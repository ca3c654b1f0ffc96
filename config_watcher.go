// config_watcher.go: Hot reload of the build config through the modifyRsbuildConfig hook
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// WatchOptions configures a ConfigWatcher.
type WatchOptions struct {
	// PollInterval for file watching. Defaults to one second.
	PollInterval time.Duration
	// CacheTTL for Argus stat caching; kept at or below PollInterval.
	CacheTTL time.Duration
	// AuditFile enables the Argus audit trail when non-empty.
	AuditFile string
}

// ReloadFunc receives the build config resolved after a file change.
type ReloadFunc func(ctx context.Context, config BuildConfig) error

// ConfigWatcher watches a build config file. Every change is loaded, run
// through the registry's modifyRsbuildConfig waterfall and handed to the
// reload callback. A failed reload keeps the previous config.
//
// Example usage:
//
//	watcher, err := buildhooks.NewConfigWatcher(registry, "build.yaml", opts,
//	    func(ctx context.Context, cfg buildhooks.BuildConfig) error {
//	        return rebuild(ctx, cfg)
//	    })
//	if err := watcher.Start(ctx); err != nil {
//	    return err
//	}
//	defer watcher.Stop()
type ConfigWatcher struct {
	registry   *Registry
	watcher    *argus.Watcher
	configPath string
	logger     Logger
	options    WatchOptions
	onReload   ReloadFunc

	enabled atomic.Bool
	mu      sync.Mutex
	current atomic.Pointer[BuildConfig]
	reloads atomic.Int64

	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewConfigWatcher creates a watcher for configPath. onReload may be nil.
func NewConfigWatcher(registry *Registry, configPath string, options WatchOptions, onReload ReloadFunc) (*ConfigWatcher, error) {
	if registry == nil {
		return nil, NewConfigWatcherError("registry is required", nil)
	}
	if configPath == "" {
		return nil, NewConfigPathError(configPath, "empty file path provided")
	}
	if options.PollInterval <= 0 {
		options.PollInterval = time.Second
	}
	if options.CacheTTL <= 0 || options.CacheTTL > options.PollInterval {
		options.CacheTTL = options.PollInterval / 2
	}

	logger := registry.logger.With("component", "config_watcher", "path", configPath)

	audit := argus.AuditConfig{Enabled: false}
	if options.AuditFile != "" {
		audit = argus.AuditConfig{
			Enabled:       true,
			OutputFile:    options.AuditFile,
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 5 * time.Second,
		}
	}

	watcher := argus.New(argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      4,
		Audit:                audit,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			logger.Error("Argus file watching error", "error", err, "file", filepath)
		},
	})

	return &ConfigWatcher{
		registry:   registry,
		watcher:    watcher,
		configPath: configPath,
		logger:     logger,
		options:    options,
		onReload:   onReload,
	}, nil
}

// Start loads and resolves the initial config, then begins watching. The
// initial config is available through Current; onReload is only called for
// later changes.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	if cw.stopped.Load() {
		return NewConfigWatcherError("watcher has been stopped and cannot be restarted", nil)
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.enabled.CompareAndSwap(false, true) {
		return NewConfigWatcherError("watcher is already running", nil)
	}

	initial, err := cw.resolve(ctx)
	if err != nil {
		cw.enabled.Store(false)
		return err
	}
	cw.current.Store(&initial)

	if err := cw.watcher.Watch(cw.configPath, cw.handleConfigChange); err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to watch config file", err)
	}
	if err := cw.watcher.Start(); err != nil {
		cw.enabled.Store(false)
		return NewConfigWatcherError("failed to start watcher", err)
	}

	cw.logger.Info("Build config watcher started", "poll_interval", cw.options.PollInterval)
	return nil
}

// Stop stops watching. A stopped watcher cannot be started again.
func (cw *ConfigWatcher) Stop() error {
	if cw.stopped.Load() {
		return NewConfigWatcherError("watcher is already stopped", nil)
	}

	var stopErr error
	cw.stopOnce.Do(func() {
		cw.mu.Lock()
		defer cw.mu.Unlock()

		if !cw.enabled.CompareAndSwap(true, false) {
			stopErr = NewConfigWatcherError("watcher is not running", nil)
			return
		}
		cw.stopped.Store(true)

		if err := cw.watcher.Stop(); err != nil {
			stopErr = NewConfigWatcherError("failed to stop watcher", err)
			return
		}
		cw.logger.Info("Build config watcher stopped")
	})
	return stopErr
}

// IsRunning reports whether the watcher is started and not stopped.
func (cw *ConfigWatcher) IsRunning() bool { return cw.enabled.Load() }

// Current returns the last successfully resolved config, or nil before Start.
func (cw *ConfigWatcher) Current() BuildConfig {
	if c := cw.current.Load(); c != nil {
		return *c
	}
	return nil
}

// Reloads returns the number of successful reloads since Start.
func (cw *ConfigWatcher) Reloads() int64 { return cw.reloads.Load() }

// Reload loads and resolves the config file immediately, as a file change
// would.
func (cw *ConfigWatcher) Reload(ctx context.Context) error {
	resolved, err := cw.resolve(ctx)
	if err != nil {
		cw.logger.Error("Failed to reload build config", "error", err)
		return err
	}
	cw.current.Store(&resolved)
	cw.reloads.Add(1)

	cw.logger.Info("Build config reloaded", "keys", len(resolved))

	if cw.onReload != nil {
		if err := cw.onReload(ctx, resolved); err != nil {
			cw.logger.Error("Reload callback failed", "error", err)
			return err
		}
	}
	return nil
}

func (cw *ConfigWatcher) resolve(ctx context.Context) (BuildConfig, error) {
	loaded, err := LoadBuildConfig(cw.configPath)
	if err != nil {
		return nil, err
	}
	return cw.registry.ModifyRsbuildConfig().Call(ctx, loaded, cw.registry.ConfigUtils())
}

func (cw *ConfigWatcher) handleConfigChange(event argus.ChangeEvent) {
	cw.logger.Debug("Build config change detected",
		"mod_time", event.ModTime,
		"size", event.Size,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete)

	if event.IsDelete {
		cw.logger.Warn("Build config was deleted, keeping the previous one")
		return
	}
	_ = cw.Reload(context.Background())
}
