// errors.go: structured error definitions for the build hook engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"github.com/agilira/go-errors"
)

// Error codes for the build hook engine
const (
	// Hook invocation errors (1000-1099)
	ErrCodeCallbackFailure = "HOOK_1001"
	ErrCodeCallbackPanic   = "HOOK_1002"
	ErrCodeUnknownHook     = "HOOK_1003"
	ErrCodeCallCanceled    = "HOOK_1004"

	// Exit handling errors (1100-1199)
	ErrCodeExitCallbackFailure = "EXIT_1101"

	// Plugin setup errors (1200-1299)
	ErrCodeInvalidPluginName   = "PLUGIN_1201"
	ErrCodeDuplicatePluginName = "PLUGIN_1202"
	ErrCodePluginSetupFailed   = "PLUGIN_1203"

	// Configuration errors (1700-1799)
	ErrCodeConfigNotFound        = "CONFIG_1701"
	ErrCodeConfigParseError      = "CONFIG_1702"
	ErrCodeConfigValidationError = "CONFIG_1703"
	ErrCodeConfigWatcherError    = "CONFIG_1704"
	ErrCodeConfigPathError       = "CONFIG_1705"
)

// Hook invocation error constructors

// NewCallbackFailureError wraps the error returned by a tap. The tap's error
// stays reachable through the Cause field.
func NewCallbackFailureError(hook HookName, tapIndex int, plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCallbackFailure, "Hook callback failed: "+string(hook)).
		WithUserMessage("A plugin callback failed while running the "+string(hook)+" hook").
		WithContext("hook", string(hook)).
		WithContext("tap_index", tapIndex).
		WithContext("plugin_name", plugin).
		WithSeverity("error")
}

func NewCallbackPanicError(hook HookName, tapIndex int, plugin string, recovered interface{}) *errors.Error {
	return errors.New(ErrCodeCallbackPanic, "Hook callback panicked: "+string(hook)).
		WithUserMessage("A plugin callback panicked while running the "+string(hook)+" hook").
		WithContext("hook", string(hook)).
		WithContext("tap_index", tapIndex).
		WithContext("plugin_name", plugin).
		WithContext("panic", recovered).
		WithSeverity("critical")
}

func NewUnknownHookError(name string) *errors.Error {
	return errors.New(ErrCodeUnknownHook, "Unknown hook").
		WithUserMessage("The requested hook is not a known lifecycle point").
		WithContext("hook", name).
		WithSeverity("error")
}

func NewCallCanceledError(hook HookName, tapIndex int, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCallCanceled, "Hook call canceled: "+string(hook)).
		WithUserMessage("The hook call was canceled before all callbacks ran").
		WithContext("hook", string(hook)).
		WithContext("tap_index", tapIndex).
		WithSeverity("warning")
}

// Exit error constructors

func NewExitCallbackFailureError(tapIndex int, plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeExitCallbackFailure, "Exit callback failed").
		WithUserMessage("A plugin exit callback failed; remaining exit callbacks still run").
		WithContext("hook", string(HookExit)).
		WithContext("tap_index", tapIndex).
		WithContext("plugin_name", plugin).
		WithSeverity("warning")
}

// Plugin setup error constructors

func NewInvalidPluginNameError(name string) *errors.Error {
	return errors.New(ErrCodeInvalidPluginName, "Invalid plugin name").
		WithUserMessage("Plugin name is required and cannot be empty").
		WithContext("provided_name", name).
		WithSeverity("error")
}

func NewDuplicatePluginNameError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicatePluginName, "Duplicate plugin name").
		WithUserMessage("Plugin names must be unique within one registry").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

func NewPluginSetupFailedError(name string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePluginSetupFailed, "Plugin setup failed").
		WithUserMessage("The plugin failed during its setup phase").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

// Configuration error constructors

func NewConfigNotFoundError(path string) *errors.Error {
	return errors.New(ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("The configuration file could not be found").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParseError, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidationError, "Configuration validation error: "+message).
			WithUserMessage("Configuration validation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidationError, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeConfigWatcherError, "Configuration watcher error: "+message).
			WithUserMessage("Configuration monitoring failed").
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeConfigWatcherError, "Configuration watcher error: "+message).
		WithUserMessage("Configuration monitoring failed").
		WithSeverity("error")
}

func NewConfigPathError(path string, message string) *errors.Error {
	return errors.New(ErrCodeConfigPathError, "Configuration path error: "+message).
		WithUserMessage("Invalid configuration file path").
		WithContext("config_path", path).
		WithSeverity("error")
}
