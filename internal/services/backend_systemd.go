//go:build !windows

package services

import (
	"context"
	"strconv"
	"strings"
)

// SystemdBackend drives the service manager through systemctl and the
// process table through pgrep/kill.
type SystemdBackend struct {
	runner CommandRunner
}

func NewBackend() Backend {
	return &SystemdBackend{runner: &DefaultCommandRunner{}}
}

func NewSystemdBackendWithRunner(runner CommandRunner) *SystemdBackend {
	return &SystemdBackend{runner: runner}
}

func (b *SystemdBackend) State(ctx context.Context, service string) (RunState, error) {
	// show exits zero even for unloaded units, so load and active state can
	// be read in one call.
	out, err := b.runner.Run(ctx, "systemctl", "show", service, "--property=LoadState,ActiveState")
	text := string(out)
	if err != nil {
		if systemctlAccessDenied(text) {
			return RunStateUnknown, PermissionDeniedError{Service: service, Cause: err}
		}
		return RunStateUnknown, ServiceCommandError{Service: service, Command: "systemctl show", Output: strings.TrimSpace(text), Cause: err}
	}
	props := parseSystemctlShow(text)
	if props["LoadState"] == "not-found" {
		return RunStateUnknown, ServiceNotFoundError{Service: service}
	}
	switch props["ActiveState"] {
	case "active", "reloading":
		return RunStateRunning, nil
	case "inactive", "failed":
		return RunStateStopped, nil
	case "activating", "deactivating":
		return RunStatePending, nil
	}
	return RunStateUnknown, nil
}

func (b *SystemdBackend) StartService(ctx context.Context, service string) error {
	return b.control(ctx, service, "start")
}

func (b *SystemdBackend) StopService(ctx context.Context, service string) error {
	return b.control(ctx, service, "stop")
}

func (b *SystemdBackend) control(ctx context.Context, service, verb string) error {
	out, err := b.runner.Run(ctx, "systemctl", verb, service)
	if err == nil {
		return nil
	}
	text := string(out)
	switch {
	case systemctlAccessDenied(text):
		return PermissionDeniedError{Service: service, Cause: err}
	case strings.Contains(text, "not found"), strings.Contains(text, "not loaded"):
		return ServiceNotFoundError{Service: service}
	}
	return ServiceCommandError{Service: service, Command: "systemctl " + verb, Output: strings.TrimSpace(text), Cause: err}
}

func (b *SystemdBackend) Processes(ctx context.Context, names []string) ([]Process, error) {
	var procs []Process
	for _, name := range names {
		// pgrep exits 1 when nothing matches; that is not a failure.
		out, err := b.runner.Run(ctx, "pgrep", "-x", "-l", name)
		if err != nil && len(strings.TrimSpace(string(out))) > 0 {
			return procs, ServiceCommandError{Command: "pgrep", Output: strings.TrimSpace(string(out)), Cause: err}
		}
		procs = append(procs, parsePgrepOutput(string(out))...)
	}
	return procs, nil
}

func (b *SystemdBackend) Kill(ctx context.Context, pid int) error {
	out, err := b.runner.Run(ctx, "kill", "-9", strconv.Itoa(pid))
	if err != nil {
		if strings.Contains(string(out), "not permitted") {
			return ProcessControlFailedError{Pid: pid, Cause: PermissionDeniedError{Cause: err}}
		}
		return ProcessControlFailedError{Pid: pid, Cause: err}
	}
	return nil
}

func (b *SystemdBackend) PathExists(path string) bool {
	return pathExists(path)
}

func parseSystemctlShow(out string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		props[key] = value
	}
	return props
}

// parsePgrepOutput parses "pid name" lines from pgrep -l.
func parsePgrepOutput(out string) []Process {
	var procs []Process
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, Process{Pid: pid, Name: fields[1]})
	}
	return procs
}

func systemctlAccessDenied(out string) bool {
	return strings.Contains(out, "Access denied") ||
		strings.Contains(out, "Permission denied") ||
		strings.Contains(out, "Interactive authentication required")
}
