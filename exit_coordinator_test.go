// exit_coordinator_test.go: One-shot exit dispatch, isolation and teardown
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func waitDone(t *testing.T, c *ExitCoordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("exit coordinator did not finish")
	}
}

func TestExitCoordinator_SignalFiresOnce(t *testing.T) {
	r := newTestRegistry(t)
	var calls atomic.Int32

	require.NoError(t, r.ApplyPlugins(NewPlugin("cleanup", func(api *PluginAPI) error {
		api.OnExit(func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
		return nil
	})))

	c := r.ExitCoordinator()
	assert.Equal(t, ExitSubscribed, c.State())

	r.signals.Send(syscall.SIGTERM)
	waitDone(t, c)
	require.Eventually(t, func() bool { return len(r.signals.Raised()) == 1 }, 5*time.Second, 5*time.Millisecond)

	r.signals.Send(syscall.SIGTERM)
	require.NoError(t, c.Fire(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ExitDone, c.State())
	assert.Equal(t, 0, r.signals.Subscribers())
	assert.Equal(t, []os.Signal{syscall.SIGTERM}, r.signals.Raised())
}

func TestExitCoordinator_SignalAfterFireStillEndsProcess(t *testing.T) {
	r := newTestRegistry(t)
	var calls atomic.Int32
	r.Exit().Tap(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	c := r.ExitCoordinator()
	c.Init()
	require.NoError(t, c.Fire(context.Background()))

	r.signals.Send(os.Interrupt)
	require.Eventually(t, func() bool { return len(r.signals.Raised()) == 1 }, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, r.signals.Subscribers())
}

func TestExitCoordinator_FireIgnoresCallerCancellation(t *testing.T) {
	r := newTestRegistry(t)
	var tapErr error
	finished := false
	r.Exit().Tap(func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		tapErr = ctx.Err()
		finished = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.ExitCoordinator().Fire(ctx))
	assert.True(t, finished)
	assert.NoError(t, tapErr)
	assert.Equal(t, ExitDone, r.ExitCoordinator().State())
	assert.False(t, r.logger.HasMessage("WARN", "Exit callbacks did not finish before the drain deadline"))
}

func TestExitCoordinator_FireRunsOnce(t *testing.T) {
	r := newTestRegistry(t)
	var calls atomic.Int32
	r.Exit().Tap(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	c := r.ExitCoordinator()
	require.NoError(t, c.Fire(context.Background()))
	require.NoError(t, c.Fire(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ExitDone, c.State())
}

func TestExitCoordinator_InitIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	c := r.ExitCoordinator()
	assert.Equal(t, ExitUninitialized, c.State())

	for i := 0; i < 3; i++ {
		c.Init()
	}
	require.NoError(t, r.ApplyPlugins(
		NewPlugin("a", func(api *PluginAPI) error { api.OnExit(func(context.Context) error { return nil }); return nil }),
		NewPlugin("b", func(api *PluginAPI) error { api.OnExit(func(context.Context) error { return nil }); return nil }),
	))

	r.signals.mu.Lock()
	notifyCalls := r.signals.notifyCalls
	r.signals.mu.Unlock()
	assert.Equal(t, 1, notifyCalls)
	assert.Equal(t, ExitSubscribed, c.State())
}

func TestExitCoordinator_CallbacksAreIsolated(t *testing.T) {
	r := newTestRegistry(t)
	var ran []string
	sentinel := errors.New("flush failed")

	require.NoError(t, r.ApplyPlugins(
		NewPlugin("failing", func(api *PluginAPI) error {
			api.OnExit(func(ctx context.Context) error { ran = append(ran, "failing"); return sentinel })
			return nil
		}),
		NewPlugin("panicking", func(api *PluginAPI) error {
			api.OnExit(func(ctx context.Context) error { ran = append(ran, "panicking"); panic("exit boom") })
			return nil
		}),
		NewPlugin("healthy", func(api *PluginAPI) error {
			api.OnExit(func(ctx context.Context) error { ran = append(ran, "healthy"); return nil })
			return nil
		}),
	))

	err := r.ExitCoordinator().Fire(context.Background())
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, ran)

	failures := multierr.Errors(err)
	require.Len(t, failures, 2)
	first := requireHookError(t, failures[0], ErrCodeExitCallbackFailure)
	assert.Equal(t, sentinel, first.Cause)
	assert.Equal(t, "failing", first.Context["plugin_name"])
	second := requireHookError(t, failures[1], ErrCodeExitCallbackFailure)
	assert.Equal(t, "panicking", second.Context["plugin_name"])

	assert.True(t, r.logger.HasMessage("WARN", "Exit callback failed"))
	assert.True(t, r.logger.HasMessage("ERROR", "Panic recovered in exit callback"))
}

func TestExitHook_IgnoresCanceledContext(t *testing.T) {
	r := newTestRegistry(t)
	called := false
	r.Exit().Tap(func(ctx context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Exit().Call(ctx))
	assert.True(t, called)
}

func TestExitCoordinator_DrainTimeout(t *testing.T) {
	signals := &fakeSignalSource{}
	logger := NewTestLogger()
	r := NewRegistry(RegistryConfig{
		Logger: logger,
		Exit:   ExitCoordinatorConfig{Signals: signals, DrainTimeout: 50 * time.Millisecond},
	})
	defer r.Close()

	release := make(chan struct{})
	defer close(release)
	r.Exit().Tap(func(ctx context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	err := r.ExitCoordinator().Fire(context.Background())
	hookErr := requireHookError(t, err, ErrCodeExitCallbackFailure)
	assert.ErrorIs(t, hookErr.Cause, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, ExitDone, r.ExitCoordinator().State())
	assert.True(t, logger.HasMessage("WARN", "Exit callbacks did not finish before the drain deadline"))
}

func TestExitCoordinator_TerminateAfterSignal(t *testing.T) {
	signals := &fakeSignalSource{}
	codes := make(chan int, 2)
	r := NewRegistry(RegistryConfig{
		Exit: ExitCoordinatorConfig{
			Signals:   signals,
			Terminate: func(code int) { codes <- code },
		},
	})
	defer r.Close()

	r.ExitCoordinator().Init()
	signals.Send(syscall.SIGTERM)

	select {
	case code := <-codes:
		assert.Equal(t, 128+int(syscall.SIGTERM), code)
	case <-time.After(5 * time.Second):
		t.Fatal("terminate was not called")
	}
	assert.Empty(t, signals.Raised())
	assert.Equal(t, 0, signals.Subscribers())
}

func TestExitCoordinator_FireDoesNotTerminate(t *testing.T) {
	terminated := false
	signals := &fakeSignalSource{}
	r := NewRegistry(RegistryConfig{
		Exit: ExitCoordinatorConfig{
			Signals:   signals,
			Terminate: func(int) { terminated = true },
		},
	})
	defer r.Close()

	r.ExitCoordinator().Init()
	require.NoError(t, r.ExitCoordinator().Fire(context.Background()))
	assert.False(t, terminated)
	assert.Empty(t, signals.Raised())
}

func TestExitCoordinator_CloseRemovesSubscription(t *testing.T) {
	r := newTestRegistry(t)
	var calls atomic.Int32
	r.Exit().Tap(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	c := r.ExitCoordinator()
	c.Init()
	require.Equal(t, 1, r.signals.Subscribers())

	c.Close()
	c.Close()
	assert.Equal(t, 0, r.signals.Subscribers())

	r.signals.Send(os.Interrupt)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, ExitSubscribed, c.State())
}

func TestExitCoordinator_InitAfterFireDoesNotSubscribe(t *testing.T) {
	r := newTestRegistry(t)
	c := r.ExitCoordinator()

	require.NoError(t, c.Fire(context.Background()))
	c.Init()

	assert.Equal(t, 0, r.signals.Subscribers())
	assert.Equal(t, ExitDone, c.State())
}

func TestExitState_String(t *testing.T) {
	tests := map[ExitState]string{
		ExitUninitialized: "uninitialized",
		ExitSubscribed:    "subscribed",
		ExitFiring:        "firing",
		ExitDone:          "done",
		ExitState(42):     "unknown",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name string
		want os.Signal
		ok   bool
	}{
		{"SIGINT", os.Interrupt, true},
		{"term", syscall.SIGTERM, true},
		{" SIGHUP ", syscall.SIGHUP, true},
		{"quit", syscall.SIGQUIT, true},
		{"SIGKILL", nil, false},
		{"", nil, false},
	}
	for _, tt := range tests {
		got, ok := ParseSignal(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
