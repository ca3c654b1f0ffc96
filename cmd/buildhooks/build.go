// build.go: The build command
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	buildhooks "github.com/agilira/go-buildhooks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type buildOptions struct {
	configPath      string
	buildConfigPath string
	watch           bool
	metricsAddr     string
}

func newCmdBuild(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run one simulated build through every lifecycle hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Host config file (YAML, JSON or TOML)")
	cmd.Flags().StringVarP(&opts.buildConfigPath, "build-config", "b", "", "Build config file")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Watch the build config and rebuild on change")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func loadHostConfig(path string) (buildhooks.HostConfig, error) {
	if path != "" {
		return buildhooks.LoadHostConfig(path)
	}
	var cfg buildhooks.HostConfig
	if err := buildhooks.ApplyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func runBuild(ctx context.Context, root *rootOptions, opts *buildOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	hostCfg, err := loadHostConfig(opts.configPath)
	if err != nil {
		return err
	}
	if root.debug {
		hostCfg.Logging.Level = "debug"
	}
	if root.logFormat != "" {
		hostCfg.Logging.Format = root.logFormat
	}
	if opts.metricsAddr != "" {
		hostCfg.Metrics.Enabled = true
		hostCfg.Metrics.Address = opts.metricsAddr
	}

	logger, err := buildhooks.NewConsoleLogger(root.errOut, hostCfg.Logging.Level, hostCfg.Logging.Format)
	if err != nil {
		return err
	}

	var metrics buildhooks.MetricsCollector
	if hostCfg.Metrics.Enabled {
		promRegistry := prometheus.NewRegistry()
		metrics = buildhooks.NewPrometheusMetricsCollector(promRegistry).WithLogger(logger)
		stop := serveMetrics(logger, promRegistry, hostCfg.Metrics.Address, hostCfg.Metrics.Path)
		defer stop()
	}

	registry := buildhooks.NewRegistry(hostCfg.RegistryConfig(logger, metrics))
	defer registry.Close()

	if err := registry.ApplyPlugins(demoPlugins()...); err != nil {
		return err
	}

	buildCfg := buildhooks.BuildConfig{}
	if opts.buildConfigPath != "" {
		if buildCfg, err = buildhooks.LoadBuildConfig(opts.buildConfigPath); err != nil {
			return err
		}
	}

	result, err := runLifecycle(ctx, registry, buildCfg, true)
	if err != nil {
		return err
	}
	if err := printResult(root, result); err != nil {
		return err
	}

	if !opts.watch || opts.buildConfigPath == "" {
		return registry.ExitCoordinator().Fire(ctx)
	}
	return watchAndServe(ctx, root, registry, hostCfg, opts.buildConfigPath)
}

// watchAndServe rebuilds on every build config change until a termination
// signal arrives and the exit callbacks have run.
func watchAndServe(ctx context.Context, root *rootOptions, registry *buildhooks.Registry, hostCfg buildhooks.HostConfig, path string) error {
	coordinator := registry.ExitCoordinator()
	coordinator.Init()

	watcher, err := buildhooks.NewConfigWatcher(registry, path, hostCfg.WatchOptions(),
		func(ctx context.Context, cfg buildhooks.BuildConfig) error {
			_, err := registry.DevCompileDone().Call(ctx, buildhooks.DevCompileDoneParams{
				IsFirstCompile: false,
				Stats:          simStats{},
			})
			if err != nil {
				return err
			}
			return printResult(root, lifecycleResult{Config: cfg})
		})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	registry.Logger().Info("Watching build config, press Ctrl+C to stop", "path", path)

	select {
	case <-coordinator.Done():
		return nil
	case <-ctx.Done():
		return coordinator.Fire(context.Background())
	}
}

func printResult(root *rootOptions, result lifecycleResult) error {
	enc := yaml.NewEncoder(root.out)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return err
	}
	return enc.Close()
}

func serveMetrics(logger buildhooks.Logger, reg *prometheus.Registry, addr, path string) func() {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "address", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
