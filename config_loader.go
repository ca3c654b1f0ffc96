// config_loader.go: Loading host and build configuration files through Argus
//
// Format detection is done by Argus from the file extension. YAML goes
// through gopkg.in/yaml.v3; JSON, TOML, HCL, INI and properties files are
// parsed by Argus into a map and bound from there.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// maxConfigSize caps config files at 10MB.
const maxConfigSize = int64(10 * 1024 * 1024)

// LoadHostConfig reads a HostConfig from path, applies BUILDHOOKS_*
// environment overrides, validates it and fills in defaults.
//
// Example:
//
//	cfg, err := buildhooks.LoadHostConfig("buildhooks.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registry := buildhooks.NewRegistry(cfg.RegistryConfig(logger, nil))
func LoadHostConfig(path string) (HostConfig, error) {
	var config HostConfig

	securePath, err := validateConfigPath(path)
	if err != nil {
		return config, err
	}
	content, err := readConfigFile(securePath)
	if err != nil {
		return config, err
	}

	if len(strings.TrimSpace(string(content))) > 0 {
		if err := parseConfigWithHybridStrategy(content, argus.DetectFormat(securePath), &config); err != nil {
			return config, NewConfigParseError(securePath, err)
		}
	}

	if err := ApplyEnvOverrides(&config); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	config.ApplyDefaults()
	return config, nil
}

// LoadBuildConfig reads the user build config at path. ${VAR} references in
// string values are expanded from the environment. An empty file yields an
// empty, non-nil config.
func LoadBuildConfig(path string) (BuildConfig, error) {
	securePath, err := validateConfigPath(path)
	if err != nil {
		return nil, err
	}
	content, err := readConfigFile(securePath)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return BuildConfig{}, nil
	}

	var raw map[string]interface{}
	format := argus.DetectFormat(securePath)
	if format == argus.FormatYAML {
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, NewConfigParseError(securePath, err)
		}
	} else {
		raw, err = argus.ParseConfig(content, format)
		if err != nil {
			return nil, NewConfigParseError(securePath, err)
		}
	}
	if raw == nil {
		return BuildConfig{}, nil
	}

	if _, err := expandBuildConfig(raw); err != nil {
		return nil, err
	}
	return BuildConfig(raw), nil
}

// parseConfigWithHybridStrategy decodes content of the given format into
// config: yaml.v3 for YAML, Argus for everything else.
func parseConfigWithHybridStrategy(content []byte, format argus.ConfigFormat, config *HostConfig) error {
	switch format {
	case argus.FormatYAML:
		if err := yaml.Unmarshal(content, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
		return nil
	default:
		configMap, err := argus.ParseConfig(content, format)
		if err != nil {
			return err
		}
		return bindHostConfig(configMap, config)
	}
}

// bindHostConfig binds an Argus config map to HostConfig by round-tripping
// through JSON, so the json tags and Duration decoding apply.
func bindHostConfig(configMap map[string]interface{}, config *HostConfig) error {
	if configMap == nil {
		return fmt.Errorf("configuration map is nil")
	}
	jsonBytes, err := json.Marshal(configMap)
	if err != nil {
		return fmt.Errorf("failed to marshal config map to JSON: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// validateConfigPath rejects traversal and control characters and resolves
// path to a clean absolute path of an existing regular file.
func validateConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", NewConfigPathError(path, "empty file path provided")
	}
	if strings.ContainsRune(path, 0) {
		return "", NewConfigPathError(path, "null byte detected in path")
	}
	if strings.Contains(path, "..") || strings.Contains(strings.ToLower(path), "%2e%2e") {
		return "", NewConfigPathError(path, "path traversal detected")
	}
	for i, r := range path {
		if r < 32 && r != '\t' {
			return "", NewConfigPathError(path, fmt.Sprintf("control character at position %d", i))
		}
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", NewConfigPathError(path, "failed to resolve absolute path: "+err.Error())
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewConfigNotFoundError(absPath)
		}
		return "", NewConfigPathError(absPath, "cannot access config file: "+err.Error())
	}
	if !info.Mode().IsRegular() {
		return "", NewConfigPathError(absPath, "not a regular file")
	}
	if info.Size() > maxConfigSize {
		return "", NewConfigPathError(absPath, fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), maxConfigSize))
	}
	return absPath, nil
}

func readConfigFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path validated by validateConfigPath
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewConfigNotFoundError(path)
		}
		return nil, NewConfigPathError(path, "failed to read config file: "+err.Error())
	}
	if int64(len(content)) > maxConfigSize {
		return nil, NewConfigPathError(path, "config file size exceeds limit")
	}
	return content, nil
}
