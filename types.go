// types.go: Hook names, kinds and the payloads each lifecycle point carries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

// HookName identifies one of the fixed lifecycle points of a build host.
//
// The set is closed: every name is bound to exactly one callback signature
// through the typed accessors on Registry.
type HookName string

const (
	HookBeforeBuild           HookName = "beforeBuild"
	HookAfterBuild            HookName = "afterBuild"
	HookBeforeCreateCompiler  HookName = "beforeCreateCompiler"
	HookAfterCreateCompiler   HookName = "afterCreateCompiler"
	HookDevCompileDone        HookName = "devCompileDone"
	HookBeforeStartDevServer  HookName = "beforeStartDevServer"
	HookAfterStartDevServer   HookName = "afterStartDevServer"
	HookBeforeStartProdServer HookName = "beforeStartProdServer"
	HookAfterStartProdServer  HookName = "afterStartProdServer"
	HookCloseDevServer        HookName = "closeDevServer"
	HookModifyHTMLTags        HookName = "modifyHTMLTags"
	HookModifyRsbuildConfig   HookName = "modifyRsbuildConfig"
	HookModifyBundlerChain    HookName = "modifyBundlerChain"
	HookExit                  HookName = "exit"
)

var allHookNames = []HookName{
	HookModifyRsbuildConfig,
	HookModifyBundlerChain,
	HookBeforeCreateCompiler,
	HookAfterCreateCompiler,
	HookBeforeBuild,
	HookAfterBuild,
	HookModifyHTMLTags,
	HookBeforeStartDevServer,
	HookAfterStartDevServer,
	HookDevCompileDone,
	HookCloseDevServer,
	HookBeforeStartProdServer,
	HookAfterStartProdServer,
	HookExit,
}

// AllHookNames returns every lifecycle point in the order a full build and
// serve session reaches them.
func AllHookNames() []HookName {
	out := make([]HookName, len(allHookNames))
	copy(out, allHookNames)
	return out
}

// Valid reports whether n is one of the known lifecycle points.
func (n HookName) Valid() bool {
	for _, name := range allHookNames {
		if name == n {
			return true
		}
	}
	return false
}

func (n HookName) String() string { return string(n) }

// HookKind describes how a hook invokes its taps.
type HookKind int

const (
	// KindCollect runs every tap with the same input and collects the results.
	KindCollect HookKind = iota
	// KindWaterfall threads a value through the taps.
	KindWaterfall
	// KindSeries runs taps one after another for their side effects.
	KindSeries
	// KindExit runs taps best-effort; failures never stop siblings.
	KindExit
)

func (k HookKind) String() string {
	switch k {
	case KindCollect:
		return "collect"
	case KindWaterfall:
		return "waterfall"
	case KindSeries:
		return "series"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// BundlerKind selects the bundler flavour a registry serves. It is fixed when
// the registry is constructed.
type BundlerKind string

const (
	BundlerRspack  BundlerKind = "rspack"
	BundlerWebpack BundlerKind = "webpack"
)

// Valid reports whether k is a supported bundler.
func (k BundlerKind) Valid() bool {
	return k == BundlerRspack || k == BundlerWebpack
}

// BundlerConfig is one bundler configuration object, opaque to the engine.
type BundlerConfig map[string]any

// BuildConfig is the user-facing build configuration threaded through the
// modifyRsbuildConfig waterfall.
type BuildConfig map[string]any

// Stats summarises a finished compilation.
type Stats interface {
	HasErrors() bool
}

// Compiler is the compiler instance created by the bundler.
type Compiler interface {
	Name() string
}

// BundlerPlugin is a bundler-level plugin instance. Only Apply is ever invoked.
type BundlerPlugin interface {
	Apply(compiler Compiler)
}

// BundlerChain is the chainable bundler configuration handed to
// modifyBundlerChain taps; the engine never inspects it.
type BundlerChain any

// Route is one served page.
type Route struct {
	EntryName string `json:"entry_name" yaml:"entry_name"`
	Pathname  string `json:"pathname" yaml:"pathname"`
}

// BeforeBuildParams is passed to beforeBuild taps.
type BeforeBuildParams struct {
	Bundler        BundlerKind
	BundlerConfigs []BundlerConfig
}

// AfterBuildParams is passed to afterBuild taps. Stats is nil when the build
// produced none.
type AfterBuildParams struct {
	IsFirstCompile bool
	Stats          Stats
}

// DevCompileDoneParams is passed to devCompileDone taps.
type DevCompileDoneParams struct {
	IsFirstCompile bool
	Stats          Stats
}

// StartServerParams is passed to afterStartDevServer and afterStartProdServer taps.
type StartServerParams struct {
	Port   int
	Routes []Route
}

// BeforeCreateCompilerParams is passed to beforeCreateCompiler taps.
type BeforeCreateCompilerParams struct {
	Bundler        BundlerKind
	BundlerConfigs []BundlerConfig
}

// AfterCreateCompilerParams is passed to afterCreateCompiler taps.
type AfterCreateCompilerParams struct {
	Compiler Compiler
}

// HTMLTag is a basic HTML tag injected into a generated page.
type HTMLTag struct {
	Tag      string         `json:"tag" yaml:"tag"`
	Attrs    map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Children string         `json:"children,omitempty" yaml:"children,omitempty"`
}

// HTMLTags holds the head and body tags of one page. A value with both slices
// nil is treated as "unchanged" by the modifyHTMLTags waterfall; return empty,
// non-nil slices to clear the tags.
type HTMLTags struct {
	HeadTags []HTMLTag `json:"head_tags" yaml:"head_tags"`
	BodyTags []HTMLTag `json:"body_tags" yaml:"body_tags"`
}

// ModifyHTMLTagsContext describes the page whose tags are being modified.
type ModifyHTMLTagsContext struct {
	// Compilation is the bundler compilation producing the page.
	Compilation any
	// AssetPrefix is the URL prefix of assets, e.g. "https://example.com/".
	AssetPrefix string
	// Filename is relative to the dist directory, e.g. "index.html".
	Filename string
	// Environment is the name of the environment the build belongs to.
	Environment string
}

// MergeConfigFunc merges several build configs into one, later ones winning.
type MergeConfigFunc func(configs ...BuildConfig) BuildConfig

// ModifyConfigUtils is handed to modifyRsbuildConfig taps.
type ModifyConfigUtils struct {
	MergeRsbuildConfig MergeConfigFunc
}

// BundlerPlugins exposes the built-in bundler plugins to chain taps.
type BundlerPlugins struct {
	BannerPlugin               BundlerPlugin
	DefinePlugin               BundlerPlugin
	IgnorePlugin               BundlerPlugin
	ProvidePlugin              BundlerPlugin
	HotModuleReplacementPlugin BundlerPlugin
}

// ModifyBundlerChainUtils describes the target a chain is built for.
type ModifyBundlerChainUtils struct {
	Env         string
	IsDev       bool
	IsProd      bool
	Target      string
	IsServer    bool
	IsWebWorker bool
	Environment string
	Bundler     BundlerPlugins
}

// ModifyBundlerChainParams is passed to modifyBundlerChain taps.
type ModifyBundlerChainParams struct {
	Chain BundlerChain
	Utils ModifyBundlerChainUtils
}
