// Package buildhooks provides the lifecycle hook and plugin coordination core
// of a build tool front-end that sits above a bundler.
//
// Plugins register callbacks ("taps") against a fixed set of lifecycle
// points. The Host embedding the engine invokes ("calls") those points at the
// right moments, and the engine runs the taps in registration order with the
// semantics of the hook's kind:
//   - collect: every tap gets the same input, results come back in order
//   - waterfall: each tap transforms the previous tap's output
//   - series: taps run one after another for their side effects
//   - exit: best-effort series run once when the process terminates
//
// The first failing tap stops a call (fail-fast); exit taps are the one
// exception and always all run.
//
// Basic Usage:
//
//	registry := buildhooks.NewRegistry(buildhooks.RegistryConfig{
//		Bundler: buildhooks.BundlerRspack,
//	})
//
//	err := registry.ApplyPlugins(
//		buildhooks.NewPlugin("report", func(api *buildhooks.PluginAPI) error {
//			api.OnAfterBuild(func(ctx context.Context, p buildhooks.AfterBuildParams) error {
//				api.Logger().Info("Build done", "first", p.IsFirstCompile)
//				return nil
//			})
//			return nil
//		}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// At the end of a compilation:
//	_, err = registry.AfterBuild().Call(ctx, buildhooks.AfterBuildParams{IsFirstCompile: true})
//
// Each Registry is independent: hooks and taps are never shared between
// registries, so several builds may run side by side in one process.
//
// Errors are *errors.Error values from github.com/agilira/go-errors; the
// code identifies the failure (HOOK_1001 for a failing tap, and so on) and
// the cause is the tap's own error.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package buildhooks
