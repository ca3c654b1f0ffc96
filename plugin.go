// plugin.go: Plugin interface and function adapter
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

// Plugin contributes taps to a Registry. Setup is called exactly once by
// Registry.ApplyPlugins, synchronously and in plugin order; it should only
// register taps and must not call hooks itself.
type Plugin interface {
	// Name identifies the plugin. It must be non-empty and unique within a
	// registry.
	Name() string

	// Setup registers the plugin's taps through api.
	Setup(api *PluginAPI) error
}

// SetupFunc is the Setup body of a function-based plugin.
type SetupFunc func(api *PluginAPI) error

type funcPlugin struct {
	name  string
	setup SetupFunc
}

// NewPlugin adapts a setup function into a Plugin.
//
// Example:
//
//	registry.ApplyPlugins(buildhooks.NewPlugin("banner", func(api *buildhooks.PluginAPI) error {
//		api.OnAfterBuild(func(ctx context.Context, p buildhooks.AfterBuildParams) error {
//			api.Logger().Info("Build finished", "first", p.IsFirstCompile)
//			return nil
//		})
//		return nil
//	}))
func NewPlugin(name string, setup SetupFunc) Plugin {
	return &funcPlugin{name: name, setup: setup}
}

func (p *funcPlugin) Name() string { return p.name }

func (p *funcPlugin) Setup(api *PluginAPI) error {
	if p.setup == nil {
		return nil
	}
	return p.setup(api)
}
