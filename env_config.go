// env_config.go: Environment overrides and ${VAR} expansion for configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvOverrides.
const EnvPrefix = "BUILDHOOKS_"

// ${VAR} or ${VAR:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ApplyEnvOverrides overrides fields of c from BUILDHOOKS_* variables:
//
//	BUILDHOOKS_NAME, BUILDHOOKS_BUNDLER
//	BUILDHOOKS_LOG_LEVEL, BUILDHOOKS_LOG_FORMAT
//	BUILDHOOKS_EXIT_SIGNALS (comma separated), BUILDHOOKS_EXIT_DRAIN_TIMEOUT
//	BUILDHOOKS_METRICS_ENABLED, BUILDHOOKS_METRICS_ADDRESS
//	BUILDHOOKS_WATCH_POLL_INTERVAL
//
// Unset or empty variables leave the field alone.
func ApplyEnvOverrides(c *HostConfig) error {
	if v := lookupEnv("NAME"); v != "" {
		c.Name = v
	}
	if v := lookupEnv("BUNDLER"); v != "" {
		c.Bundler = BundlerKind(strings.ToLower(v))
	}
	if v := lookupEnv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := lookupEnv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := lookupEnv("EXIT_SIGNALS"); v != "" {
		var signals []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				signals = append(signals, s)
			}
		}
		c.Exit.Signals = signals
	}
	if v := lookupEnv("EXIT_DRAIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewConfigValidationError(EnvPrefix+"EXIT_DRAIN_TIMEOUT is not a duration", err)
		}
		c.Exit.DrainTimeout = Duration(d)
	}
	if v := lookupEnv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return NewConfigValidationError(EnvPrefix+"METRICS_ENABLED is not a boolean", err)
		}
		c.Metrics.Enabled = enabled
	}
	if v := lookupEnv("METRICS_ADDRESS"); v != "" {
		c.Metrics.Address = v
	}
	if v := lookupEnv("WATCH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewConfigValidationError(EnvPrefix+"WATCH_POLL_INTERVAL is not a duration", err)
		}
		c.Watch.PollInterval = Duration(d)
	}
	return nil
}

func lookupEnv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

// ExpandEnv replaces ${VAR} and ${VAR:-default} references in input. A
// reference to an unset variable without a default is an error.
func ExpandEnv(input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(input, func(ref string) string {
		m := envVarPattern.FindStringSubmatch(ref)
		if value, ok := os.LookupEnv(m[1]); ok && value != "" {
			return value
		}
		if strings.Contains(ref, ":-") {
			return m[2]
		}
		missing = append(missing, m[1])
		return ref
	})
	if len(missing) > 0 {
		return "", NewConfigValidationError(
			fmt.Sprintf("undefined environment variables: %s", strings.Join(missing, ", ")), nil)
	}
	return out, nil
}

// expandBuildConfig expands environment references in every string value of
// a parsed build config, in place.
func expandBuildConfig(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return ExpandEnv(val)
	case map[string]interface{}:
		for k, item := range val {
			expanded, err := expandBuildConfig(item)
			if err != nil {
				return nil, err
			}
			val[k] = expanded
		}
		return val, nil
	case BuildConfig:
		_, err := expandBuildConfig(map[string]interface{}(val))
		return val, err
	case []interface{}:
		for i, item := range val {
			expanded, err := expandBuildConfig(item)
			if err != nil {
				return nil, err
			}
			val[i] = expanded
		}
		return val, nil
	default:
		return v, nil
	}
}
