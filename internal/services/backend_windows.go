//go:build windows

package services

import (
	"context"
	"encoding/csv"
	"strconv"
	"strings"
)

// ScBackend drives the Windows service control manager through sc.exe and
// the process table through tasklist/taskkill, the same surface NSSM-managed
// services are administered with.
type ScBackend struct {
	runner CommandRunner
}

func NewBackend() Backend {
	return &ScBackend{runner: &DefaultCommandRunner{}}
}

func NewScBackendWithRunner(runner CommandRunner) *ScBackend {
	return &ScBackend{runner: runner}
}

func (b *ScBackend) State(ctx context.Context, service string) (RunState, error) {
	out, err := b.runner.Run(ctx, "sc", "query", service)
	text := string(out)
	if err != nil {
		if scNotFound(text) {
			return RunStateUnknown, ServiceNotFoundError{Service: service}
		}
		if scAccessDenied(text) {
			return RunStateUnknown, PermissionDeniedError{Service: service, Cause: err}
		}
		return RunStateUnknown, ServiceCommandError{Service: service, Command: "sc query", Output: strings.TrimSpace(text), Cause: err}
	}
	return parseScState(text), nil
}

func (b *ScBackend) StartService(ctx context.Context, service string) error {
	return b.control(ctx, service, "start")
}

func (b *ScBackend) StopService(ctx context.Context, service string) error {
	return b.control(ctx, service, "stop")
}

func (b *ScBackend) control(ctx context.Context, service, verb string) error {
	out, err := b.runner.Run(ctx, "sc", verb, service)
	if err == nil {
		return nil
	}
	text := string(out)
	switch {
	case scNotFound(text):
		return ServiceNotFoundError{Service: service}
	case scAccessDenied(text):
		return PermissionDeniedError{Service: service, Cause: err}
	// 1056: already running, 1062: not started. Both mean the service is
	// already where this verb wanted it.
	case verb == "start" && strings.Contains(text, "1056"):
		return nil
	case verb == "stop" && strings.Contains(text, "1062"):
		return nil
	}
	return ServiceCommandError{Service: service, Command: "sc " + verb, Output: strings.TrimSpace(text), Cause: err}
}

func (b *ScBackend) Processes(ctx context.Context, names []string) ([]Process, error) {
	var procs []Process
	for _, name := range names {
		out, err := b.runner.Run(ctx, "tasklist", "/FO", "CSV", "/NH", "/FI", "IMAGENAME eq "+name)
		if err != nil {
			return procs, ServiceCommandError{Command: "tasklist", Output: strings.TrimSpace(string(out)), Cause: err}
		}
		procs = append(procs, parseTasklistCSV(string(out), name)...)
	}
	return procs, nil
}

func (b *ScBackend) Kill(ctx context.Context, pid int) error {
	out, err := b.runner.Run(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid))
	if err != nil {
		if scAccessDenied(string(out)) {
			return ProcessControlFailedError{Pid: pid, Cause: PermissionDeniedError{Cause: err}}
		}
		return ProcessControlFailedError{Pid: pid, Cause: err}
	}
	return nil
}

func (b *ScBackend) PathExists(path string) bool {
	return pathExists(path)
}

// parseScState extracts the STATE line from sc query output.
//
//	STATE              : 4  RUNNING
func parseScState(out string) RunState {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "STATE") {
			continue
		}
		switch {
		case strings.Contains(line, "RUNNING"):
			return RunStateRunning
		case strings.Contains(line, "STOPPED"):
			return RunStateStopped
		case strings.Contains(line, "PENDING"):
			return RunStatePending
		}
	}
	return RunStateUnknown
}

// parseTasklistCSV parses tasklist /FO CSV /NH output. A filter with no
// matches prints an INFO line instead of CSV.
func parseTasklistCSV(out, name string) []Process {
	var procs []Process
	if strings.Contains(out, "INFO:") {
		return procs
	}
	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return procs
	}
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec[0]), name) {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			continue
		}
		procs = append(procs, Process{Pid: pid, Name: rec[0]})
	}
	return procs
}

func scNotFound(out string) bool {
	return strings.Contains(out, "1060") || strings.Contains(out, "does not exist")
}

func scAccessDenied(out string) bool {
	return strings.Contains(out, "Access is denied") || strings.Contains(out, "FAILED 5")
}
