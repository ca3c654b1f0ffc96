// config.go: Host configuration for registries, exit handling, logging and metrics
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads "5s"-style strings from JSON and
// YAML. Plain numbers are taken as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw interface{}) error {
	switch v := raw.(type) {
	case nil:
		*d = 0
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(v * float64(time.Second))
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration value of type %T", raw)
	}
	return nil
}

// LoggingConfig selects the log level and output format of the Host.
type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `json:"format" yaml:"format"`
}

// ExitConfig configures the ExitCoordinator.
type ExitConfig struct {
	// Signals lists the termination signals, e.g. ["SIGINT", "SIGTERM"].
	Signals []string `json:"signals" yaml:"signals"`
	// DrainTimeout bounds how long exit callbacks may run.
	DrainTimeout Duration `json:"drain_timeout" yaml:"drain_timeout"`
}

// MetricsConfig configures the Prometheus endpoint of the Host.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
	Path    string `json:"path" yaml:"path"`
}

// WatchConfig configures build config hot reload.
type WatchConfig struct {
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval"`
	CacheTTL     Duration `json:"cache_ttl" yaml:"cache_ttl"`
	// AuditFile enables the argus audit trail when set.
	AuditFile string `json:"audit_file,omitempty" yaml:"audit_file,omitempty"`
}

// HostConfig is the configuration of a build host embedding the engine.
//
// Example (YAML):
//
//	name: my-app
//	bundler: rspack
//	logging:
//	  level: debug
//	  format: console
//	exit:
//	  signals: [SIGINT, SIGTERM]
//	  drain_timeout: 3s
//	metrics:
//	  enabled: true
//	  address: ":9464"
type HostConfig struct {
	Name    string        `json:"name" yaml:"name"`
	Bundler BundlerKind   `json:"bundler" yaml:"bundler"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Exit    ExitConfig    `json:"exit" yaml:"exit"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Watch   WatchConfig   `json:"watch" yaml:"watch"`
}

// DefaultHostConfig returns a HostConfig with every default applied.
func DefaultHostConfig() HostConfig {
	var c HostConfig
	c.ApplyDefaults()
	return c
}

// Validate checks the configuration. Empty fields are valid; ApplyDefaults
// fills them in.
func (c *HostConfig) Validate() error {
	if c.Bundler != "" && !c.Bundler.Valid() {
		return NewConfigValidationError(fmt.Sprintf("unsupported bundler %q", c.Bundler), nil)
	}
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
			return NewConfigValidationError(fmt.Sprintf("invalid log level %q", c.Logging.Level), err)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return NewConfigValidationError(fmt.Sprintf("invalid log format %q", c.Logging.Format), nil)
	}
	for _, name := range c.Exit.Signals {
		if _, ok := ParseSignal(name); !ok {
			return NewConfigValidationError(fmt.Sprintf("unsupported exit signal %q", name), nil)
		}
	}
	if c.Watch.PollInterval < 0 {
		return NewConfigValidationError("watch poll_interval cannot be negative", nil)
	}
	if c.Watch.CacheTTL < 0 {
		return NewConfigValidationError("watch cache_ttl cannot be negative", nil)
	}
	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return NewConfigValidationError(fmt.Sprintf("metrics path %q must start with '/'", c.Metrics.Path), nil)
	}
	return nil
}

// ApplyDefaults fills in every unset field.
func (c *HostConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "buildhooks"
	}
	if c.Bundler == "" {
		c.Bundler = BundlerRspack
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if len(c.Exit.Signals) == 0 {
		c.Exit.Signals = []string{"SIGINT", "SIGTERM"}
	}
	if c.Exit.DrainTimeout == 0 {
		c.Exit.DrainTimeout = Duration(DefaultDrainTimeout)
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9464"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Watch.PollInterval == 0 {
		c.Watch.PollInterval = Duration(time.Second)
	}
	if c.Watch.CacheTTL == 0 || c.Watch.CacheTTL > c.Watch.PollInterval {
		c.Watch.CacheTTL = c.Watch.PollInterval / 2
	}
}

// ExitCoordinatorConfig converts the exit section. Unknown signal names are
// skipped; Validate reports them.
func (c *HostConfig) ExitCoordinatorConfig() ExitCoordinatorConfig {
	var signals []os.Signal
	for _, name := range c.Exit.Signals {
		if sig, ok := ParseSignal(name); ok {
			signals = append(signals, sig)
		}
	}
	return ExitCoordinatorConfig{
		Signals:      NewOSSignalSource(signals...),
		DrainTimeout: c.Exit.DrainTimeout.Std(),
	}
}

// WatchOptions converts the watch section.
func (c *HostConfig) WatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval: c.Watch.PollInterval.Std(),
		CacheTTL:     c.Watch.CacheTTL.Std(),
		AuditFile:    c.Watch.AuditFile,
	}
}

// RegistryConfig builds the registry configuration for this host. logger
// and metrics may be nil.
func (c *HostConfig) RegistryConfig(logger Logger, metrics MetricsCollector) RegistryConfig {
	return RegistryConfig{
		Name:    c.Name,
		Bundler: c.Bundler,
		Logger:  logger,
		Metrics: metrics,
		Exit:    c.ExitCoordinatorConfig(),
	}
}
