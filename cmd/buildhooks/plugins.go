// plugins.go: Built-in demo plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"

	buildhooks "github.com/agilira/go-buildhooks"
)

func demoPlugins() []buildhooks.Plugin {
	return []buildhooks.Plugin{
		buildhooks.NewPlugin("define-env", setupDefineEnv),
		buildhooks.NewPlugin("html-meta", setupHTMLMeta),
		buildhooks.NewPlugin("build-report", setupBuildReport),
	}
}

func setupDefineEnv(api *buildhooks.PluginAPI) error {
	api.ModifyRsbuildConfig(func(ctx context.Context, cfg buildhooks.BuildConfig, utils buildhooks.ModifyConfigUtils) (buildhooks.BuildConfig, error) {
		return utils.MergeRsbuildConfig(cfg, buildhooks.BuildConfig{
			"source": map[string]any{
				"define": map[string]any{
					"process.env.BUNDLER": string(api.Bundler()),
				},
			},
		}), nil
	})
	api.ModifyBundlerChain(func(ctx context.Context, p buildhooks.ModifyBundlerChainParams) error {
		if chain, ok := p.Chain.(map[string]any); ok {
			chain["mode"] = p.Utils.Env
			chain["target"] = p.Utils.Target
		}
		return nil
	})
	return nil
}

func setupHTMLMeta(api *buildhooks.PluginAPI) error {
	api.ModifyHTMLTags(func(ctx context.Context, tags buildhooks.HTMLTags, page buildhooks.ModifyHTMLTagsContext) (buildhooks.HTMLTags, error) {
		tags.HeadTags = append(tags.HeadTags, buildhooks.HTMLTag{
			Tag:   "meta",
			Attrs: map[string]any{"name": "generator", "content": "buildhooks"},
		})
		return tags, nil
	})
	return nil
}

func setupBuildReport(api *buildhooks.PluginAPI) error {
	log := api.Logger()
	started := 0

	api.OnBeforeBuild(func(ctx context.Context, p buildhooks.BeforeBuildParams) error {
		started++
		log.Info("Build starting", "bundler", string(p.Bundler), "configs", len(p.BundlerConfigs))
		return nil
	})
	api.OnAfterBuild(func(ctx context.Context, p buildhooks.AfterBuildParams) error {
		hasErrors := p.Stats != nil && p.Stats.HasErrors()
		log.Info("Build finished", "first_compile", p.IsFirstCompile, "has_errors", hasErrors)
		return nil
	})
	api.OnDevCompileDone(func(ctx context.Context, p buildhooks.DevCompileDoneParams) error {
		log.Info("Rebuilt after config change")
		return nil
	})
	api.OnExit(func(ctx context.Context) error {
		log.Info("Build session ended", "builds", started)
		return nil
	})
	return nil
}
