// config_merge.go: Default deep merge for build configs
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

// MergeBuildConfigs merges configs left to right into a new BuildConfig:
//   - nested maps are merged recursively
//   - slices are concatenated, earlier elements first
//   - any other value from a later config replaces the earlier one
//   - nil configs and nil values are skipped
//
// The inputs are never modified. It is the default merge function of a
// Registry and backs PluginAPI.MergeRsbuildConfig unless the Host supplies
// its own.
func MergeBuildConfigs(configs ...BuildConfig) BuildConfig {
	out := BuildConfig{}
	for _, c := range configs {
		if c == nil {
			continue
		}
		mergeInto(out, c)
	}
	return out
}

func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if v == nil {
			continue
		}
		if srcMap, ok := asMap(v); ok {
			if dstMap, ok := asMap(dst[k]); ok {
				merged := make(map[string]any, len(dstMap)+len(srcMap))
				mergeInto(merged, dstMap)
				mergeInto(merged, srcMap)
				dst[k] = merged
				continue
			}
			fresh := make(map[string]any, len(srcMap))
			mergeInto(fresh, srcMap)
			dst[k] = fresh
			continue
		}
		if srcSlice, ok := v.([]any); ok {
			if dstSlice, ok := dst[k].([]any); ok {
				joined := make([]any, 0, len(dstSlice)+len(srcSlice))
				joined = append(joined, dstSlice...)
				joined = append(joined, srcSlice...)
				dst[k] = joined
				continue
			}
			dst[k] = append([]any(nil), srcSlice...)
			continue
		}
		dst[k] = v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case BuildConfig:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
