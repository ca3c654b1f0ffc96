// exit_coordinator.go: Process-exit subscription and one-shot exit hook dispatch
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package buildhooks

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// DefaultDrainTimeout bounds how long the coordinator keeps the process alive
// for exit callbacks.
const DefaultDrainTimeout = 5 * time.Second

// ExitState is the lifecycle state of an ExitCoordinator.
type ExitState int32

const (
	ExitUninitialized ExitState = iota
	ExitSubscribed
	ExitFiring
	ExitDone
)

func (s ExitState) String() string {
	switch s {
	case ExitUninitialized:
		return "uninitialized"
	case ExitSubscribed:
		return "subscribed"
	case ExitFiring:
		return "firing"
	case ExitDone:
		return "done"
	default:
		return "unknown"
	}
}

// SignalSource delivers process termination signals. The default
// implementation wraps os/signal; tests substitute a fake.
//
// Raise sends sig to the current process. It is used after Stop, when no
// Terminate function is configured, so the signal gets its default
// disposition once the exit callbacks have run.
type SignalSource interface {
	Notify(ch chan<- os.Signal)
	Stop(ch chan<- os.Signal)
	Raise(sig os.Signal) error
}

type osSignalSource struct {
	signals []os.Signal
}

// NewOSSignalSource subscribes to the given signals through os/signal.
// With no arguments it listens for SIGINT and SIGTERM.
func NewOSSignalSource(signals ...os.Signal) SignalSource {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &osSignalSource{signals: signals}
}

func (s *osSignalSource) Notify(ch chan<- os.Signal) { signal.Notify(ch, s.signals...) }
func (s *osSignalSource) Stop(ch chan<- os.Signal)   { signal.Stop(ch) }

func (s *osSignalSource) Raise(sig os.Signal) error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// ParseSignal maps a signal name such as "SIGTERM" or "term" to its value.
func ParseSignal(name string) (os.Signal, bool) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG") {
	case "INT":
		return os.Interrupt, true
	case "TERM":
		return syscall.SIGTERM, true
	case "HUP":
		return syscall.SIGHUP, true
	case "QUIT":
		return syscall.SIGQUIT, true
	default:
		return nil, false
	}
}

// ExitCoordinatorConfig configures an ExitCoordinator.
type ExitCoordinatorConfig struct {
	// Signals is the termination signal source. Defaults to SIGINT and SIGTERM.
	Signals SignalSource

	// DrainTimeout is the longest the coordinator waits for exit callbacks.
	// Zero means DefaultDrainTimeout; a negative value waits forever.
	DrainTimeout time.Duration

	// Terminate, when set, is called with 128+signal once the exit callbacks
	// of a signal-triggered exit finished or timed out. When nil the signal
	// is raised again after the subscription is removed, so the process ends
	// the way it would have without the coordinator. Direct Fire calls never
	// terminate.
	Terminate func(code int)
}

// ExitCoordinator turns the first process termination event into exactly one
// invocation of the exit hook.
//
// The subscription is installed once, on the first Init; later calls do
// nothing. Termination is either a signal from the SignalSource or a direct
// Fire by the Host at normal process end. Only the first of them runs the
// exit callbacks, every later one is ignored. A termination signal always
// ends the process once the callbacks are done, through Terminate or by
// re-raising the signal without the subscription.
//
// Exit callbacks should be synchronous. Work a callback schedules in the
// background is only awaited until the drain timeout expires; once the
// process is torn down nothing guarantees it completes.
type ExitCoordinator struct {
	hook   *ExitHook
	logger Logger
	config ExitCoordinatorConfig

	state atomic.Int32

	initOnce  sync.Once
	fireOnce  sync.Once
	closeOnce sync.Once

	sigCh  chan os.Signal
	stopCh chan struct{}
	done   chan struct{}

	subscribed atomic.Bool
	result     error
}

// NewExitCoordinator creates a coordinator for hook. No subscription is
// installed until Init is called.
func NewExitCoordinator(hook *ExitHook, logger Logger, config ExitCoordinatorConfig) *ExitCoordinator {
	if logger == nil {
		logger = DefaultLogger()
	}
	if config.Signals == nil {
		config.Signals = NewOSSignalSource()
	}
	if config.DrainTimeout == 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	return &ExitCoordinator{
		hook:   hook,
		logger: logger.With("component", "exit_coordinator"),
		config: config,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Init installs the termination subscription. It is safe to call any number
// of times; only the first call subscribes, and only while the coordinator is
// still uninitialized.
func (c *ExitCoordinator) Init() {
	c.initOnce.Do(func() {
		select {
		case <-c.stopCh:
			return
		default:
		}
		if !c.state.CompareAndSwap(int32(ExitUninitialized), int32(ExitSubscribed)) {
			return
		}
		c.sigCh = make(chan os.Signal, 1)
		c.config.Signals.Notify(c.sigCh)
		c.subscribed.Store(true)
		c.logger.Debug("Exit subscription installed")

		go c.watch()
	})
}

func (c *ExitCoordinator) watch() {
	for {
		select {
		case sig := <-c.sigCh:
			if !c.fire(context.Background(), sig.String()) {
				// Fire already ran the callbacks; the signal still ends the process.
				<-c.done
			}
			c.unsubscribe()
			c.terminate(sig)
			return
		case <-c.stopCh:
			return
		}
	}
}

// terminate ends the process after a signal-triggered exit, either through
// the configured Terminate or by delivering sig again with the subscription
// removed.
func (c *ExitCoordinator) terminate(sig os.Signal) {
	if c.config.Terminate != nil {
		c.config.Terminate(exitCodeFor(sig))
		return
	}
	c.logger.Debug("Re-raising termination signal", "signal", sig.String())
	if err := c.config.Signals.Raise(sig); err != nil {
		c.logger.Error("Failed to re-raise termination signal", "signal", sig.String(), "error", err)
	}
}

func (c *ExitCoordinator) unsubscribe() {
	if c.subscribed.CompareAndSwap(true, false) {
		c.config.Signals.Stop(c.sigCh)
	}
}

// Fire runs the exit callbacks if no termination has been handled yet, then
// waits until they finished (or the drain timeout expired) and returns their
// combined failures. The callbacks never see ctx's cancellation; ctx only
// bounds how long a later caller waits for a run that is still in progress.
// Every call returns the result of the one run.
func (c *ExitCoordinator) Fire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.fire(ctx, "fire")
	select {
	case <-c.done:
		return c.result
	default:
	}
	select {
	case <-c.done:
		return c.result
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs the exit hook at most once and reports whether this call did.
func (c *ExitCoordinator) fire(ctx context.Context, reason string) bool {
	fired := false
	c.fireOnce.Do(func() {
		fired = true
		c.state.Store(int32(ExitFiring))
		c.logger.Info("Running exit callbacks", "reason", reason, "taps", c.hook.Len())

		// Exit callbacks outlive the caller's cancellation; only the drain
		// deadline bounds them.
		base := context.WithoutCancel(ctx)
		var (
			drainCtx context.Context
			cancel   context.CancelFunc
		)
		if c.config.DrainTimeout > 0 {
			drainCtx, cancel = context.WithTimeout(base, c.config.DrainTimeout)
		} else {
			drainCtx, cancel = context.WithCancel(base)
		}
		defer cancel()

		resultCh := make(chan error, 1)
		go func() { resultCh <- c.hook.Call(drainCtx) }()

		select {
		case c.result = <-resultCh:
			if c.result != nil {
				c.logger.Warn("Exit callbacks finished with failures", "error", c.result)
			}
		case <-drainCtx.Done():
			c.result = NewExitCallbackFailureError(-1, "", drainCtx.Err())
			c.logger.Warn("Exit callbacks did not finish before the drain deadline",
				"drain_timeout", c.config.DrainTimeout)
		}

		c.state.Store(int32(ExitDone))
		close(c.done)
	})
	return fired
}

// State returns the current lifecycle state.
func (c *ExitCoordinator) State() ExitState {
	return ExitState(c.state.Load())
}

// Done is closed once the exit callbacks finished or the drain timed out.
func (c *ExitCoordinator) Done() <-chan struct{} {
	return c.done
}

// Close removes the signal subscription. It does not run exit callbacks.
func (c *ExitCoordinator) Close() {
	c.closeOnce.Do(func() {
		c.unsubscribe()
		close(c.stopCh)
	})
}

func exitCodeFor(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
