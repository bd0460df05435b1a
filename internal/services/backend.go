package services

import (
	"context"
	"os"
	"os/exec"
)

// Backend abstracts the host's service manager and process table. The probe,
// cleaner, and controller depend only on this interface; tests substitute an
// in-memory fake.
type Backend interface {
	// State returns the service manager's raw run state for the named
	// service. Errors are returned for transport failures, missing
	// registrations, and permission problems; the probe degrades them to
	// StateUnknown.
	State(ctx context.Context, service string) (RunState, error)

	// StartService issues the service manager's start command.
	StartService(ctx context.Context, service string) error

	// StopService issues the service manager's stop command.
	StopService(ctx context.Context, service string) error

	// Processes lists process-table entries whose executable name is in
	// names. Matching is case-insensitive.
	Processes(ctx context.Context, names []string) ([]Process, error)

	// Kill forcibly terminates the process with the given pid.
	Kill(ctx context.Context, pid int) error

	// PathExists reports whether a filesystem path exists.
	PathExists(path string) bool
}

// CommandRunner executes an external command and returns its combined
// output. The concrete backends drive every system interaction through this
// so tests can replace the host entirely.
type CommandRunner interface {
	Run(ctx context.Context, name string, arg ...string) ([]byte, error)
}

type DefaultCommandRunner struct{}

func (d *DefaultCommandRunner) Run(ctx context.Context, name string, arg ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, arg...)
	return cmd.CombinedOutput()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
