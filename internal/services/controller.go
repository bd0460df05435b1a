package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"licman/internal/retry"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStartTimeout = 30 * time.Second
	DefaultStopTimeout  = 30 * time.Second
)

type ControllerOptions struct {
	PollInterval time.Duration
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

func DefaultControllerOptions() ControllerOptions {
	return ControllerOptions{
		PollInterval: DefaultPollInterval,
		StartTimeout: DefaultStartTimeout,
		StopTimeout:  DefaultStopTimeout,
	}
}

// Controller executes start, stop, and restart as explicit step sequences:
// probe, cleanup, manager command, poll until settled. Operations are
// synchronous and internally bounded; callers must not run two operations
// against the same service concurrently.
type Controller struct {
	backend Backend
	probe   *Probe
	cleaner *Cleaner
	opts    ControllerOptions
}

func NewController(backend Backend) *Controller {
	return NewControllerWithOptions(backend, DefaultControllerOptions())
}

func NewControllerWithOptions(backend Backend, opts ControllerOptions) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	return &Controller{
		backend: backend,
		probe:   NewProbe(backend),
		cleaner: NewCleaner(backend),
		opts:    opts,
	}
}

// Status is a single fresh classification of the service's state.
func (c *Controller) Status(ctx context.Context, def ServiceDefinition) ServiceState {
	return c.probe.Classify(ctx, def)
}

// Start brings the service to the active state. Already-active services are
// a no-op; orphan processes are swept before the manager start command so a
// new instance never races a leftover one.
func (c *Controller) Start(ctx context.Context, def ServiceDefinition) OperationResult {
	state := c.probe.Classify(ctx, def)
	if state == StateActive {
		return OperationResult{
			Succeeded:  true,
			FinalState: StateActive,
			Detail:     "already active",
		}
	}

	var sweep CleanupReport
	if state == StateOrphanProcess {
		sweep = c.cleaner.Terminate(ctx, def.ProcessNames)
	}

	if err := c.backend.StartService(ctx, def.Name); err != nil {
		return OperationResult{
			Succeeded:  false,
			FinalState: c.probe.Classify(ctx, def),
			ErrorKind:  Kind(err),
			Detail:     err.Error(),
			Cleanup:    sweep,
		}
	}

	last := state
	err := retry.Until(ctx, c.opts.PollInterval, c.opts.StartTimeout, func(ctx context.Context) (bool, error) {
		last = c.probe.Classify(ctx, def)
		return last == StateActive, nil
	})
	if err != nil {
		return OperationResult{
			Succeeded:  false,
			FinalState: last,
			ErrorKind:  ErrKindTimeout,
			Detail:     TimeoutError{Service: def.Name, Op: "start", Last: last}.Error(),
			Cleanup:    sweep,
		}
	}

	detail := "started"
	if !sweep.Empty() {
		detail = fmt.Sprintf("started (%s)", sweep.Summary())
	}
	return OperationResult{
		Succeeded:  true,
		FinalState: StateActive,
		Detail:     detail,
		Cleanup:    sweep,
	}
}

// Stop brings the service to the stopped state. The cleanup sweep runs
// whether or not the manager command and the wait succeeded: a stopped
// service record does not guarantee the underlying process exited. Only
// permission and unknown-service failures abort before the sweep; an
// unregistered name has no processes worth polling or sweeping for.
func (c *Controller) Stop(ctx context.Context, def ServiceDefinition) OperationResult {
	state := c.probe.Classify(ctx, def)
	if state == StateStopped {
		return OperationResult{
			Succeeded:  true,
			FinalState: StateStopped,
			Detail:     "already stopped",
		}
	}

	if err := c.backend.StopService(ctx, def.Name); err != nil {
		switch kind := Kind(err); kind {
		case ErrKindPermissionDenied, ErrKindServiceNotFound:
			return OperationResult{
				Succeeded:  false,
				FinalState: state,
				ErrorKind:  kind,
				Detail:     err.Error(),
			}
		}
		// Other command failures still get the sweep below; the manager's
		// record may be gone while the process lingers.
	}

	last := state
	pollErr := retry.Until(ctx, c.opts.PollInterval, c.opts.StopTimeout, func(ctx context.Context) (bool, error) {
		last = c.probe.Classify(ctx, def)
		// Orphan processes are the sweep's job; the manager side is settled.
		return last == StateStopped || last == StateOrphanProcess, nil
	})

	sweep := c.cleaner.Terminate(ctx, def.ProcessNames)
	final := c.probe.Classify(ctx, def)

	if pollErr != nil {
		if errors.Is(pollErr, context.Canceled) {
			return OperationResult{
				Succeeded:  false,
				FinalState: final,
				ErrorKind:  ErrKindNone,
				Detail:     pollErr.Error(),
				Cleanup:    sweep,
			}
		}
		return OperationResult{
			Succeeded:  false,
			FinalState: final,
			ErrorKind:  ErrKindTimeout,
			Detail:     TimeoutError{Service: def.Name, Op: "stop", Last: last}.Error(),
			Cleanup:    sweep,
		}
	}

	detail := fmt.Sprintf("stopped (%s)", sweep.Summary())
	return OperationResult{
		Succeeded:  true,
		FinalState: final,
		Detail:     detail,
		Cleanup:    sweep,
	}
}

// Restart is Stop followed by Start. A fatal Stop failure short-circuits;
// the Start result carries the stop sweep's accounting so partial cleanup
// stays visible.
func (c *Controller) Restart(ctx context.Context, def ServiceDefinition) OperationResult {
	stopped := c.Stop(ctx, def)
	if !stopped.Succeeded {
		return stopped
	}

	started := c.Start(ctx, def)
	if started.Cleanup.Empty() {
		started.Cleanup = stopped.Cleanup
	}
	return started
}
