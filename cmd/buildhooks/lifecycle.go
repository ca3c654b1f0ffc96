// lifecycle.go: Simulated build lifecycle driving the registry hooks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"

	buildhooks "github.com/agilira/go-buildhooks"
)

type simStats struct {
	errors bool
}

func (s simStats) HasErrors() bool { return s.errors }

type simCompiler struct {
	name string
}

func (c simCompiler) Name() string { return c.name }

type lifecycleResult struct {
	Config buildhooks.BuildConfig `yaml:"config"`
	HTML   *buildhooks.HTMLTags   `yaml:"html,omitempty"`
	Chain  map[string]any         `yaml:"chain,omitempty"`
}

// runLifecycle calls the hooks of one production build in the order a
// bundler front-end reaches them.
func runLifecycle(ctx context.Context, r *buildhooks.Registry, cfg buildhooks.BuildConfig, first bool) (lifecycleResult, error) {
	var result lifecycleResult

	resolved, err := r.ModifyRsbuildConfig().Call(ctx, cfg, r.ConfigUtils())
	if err != nil {
		return result, err
	}
	result.Config = resolved

	chain := map[string]any{}
	err = r.ModifyBundlerChain().Call(ctx, buildhooks.ModifyBundlerChainParams{
		Chain: chain,
		Utils: buildhooks.ModifyBundlerChainUtils{
			Env:         "production",
			IsProd:      true,
			Target:      "web",
			Environment: "web",
		},
	})
	if err != nil {
		return result, err
	}
	result.Chain = chain

	bundlerConfigs := []buildhooks.BundlerConfig{buildhooks.BundlerConfig(resolved)}
	if err := r.BeforeCreateCompiler().Call(ctx, buildhooks.BeforeCreateCompilerParams{
		Bundler:        r.Bundler(),
		BundlerConfigs: bundlerConfigs,
	}); err != nil {
		return result, err
	}
	if err := r.AfterCreateCompiler().Call(ctx, buildhooks.AfterCreateCompilerParams{
		Compiler: simCompiler{name: string(r.Bundler())},
	}); err != nil {
		return result, err
	}
	if err := r.BeforeBuild().Call(ctx, buildhooks.BeforeBuildParams{
		Bundler:        r.Bundler(),
		BundlerConfigs: bundlerConfigs,
	}); err != nil {
		return result, err
	}

	tags, err := r.ModifyHTMLTags().Call(ctx,
		buildhooks.HTMLTags{
			HeadTags: []buildhooks.HTMLTag{{Tag: "title", Children: "app"}},
			BodyTags: []buildhooks.HTMLTag{},
		},
		buildhooks.ModifyHTMLTagsContext{
			AssetPrefix: "/",
			Filename:    "index.html",
			Environment: "web",
		})
	if err != nil {
		return result, err
	}
	result.HTML = &tags

	if _, err := r.AfterBuild().Call(ctx, buildhooks.AfterBuildParams{
		IsFirstCompile: first,
		Stats:          simStats{},
	}); err != nil {
		return result, err
	}
	return result, nil
}
