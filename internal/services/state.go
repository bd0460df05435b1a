package services

import "time"

// ServiceState is the classified operational state of a managed service,
// combining the service manager's answer with the process table.
type ServiceState string

const (
	StateActive        ServiceState = "active"
	StateStopped       ServiceState = "stopped"
	StateOrphanProcess ServiceState = "orphan-process"
	StateUnknown       ServiceState = "unknown"
)

// Symbol returns the one-character status marker used in status output.
func (s ServiceState) Symbol() string {
	switch s {
	case StateActive:
		return "●"
	case StateStopped:
		return "○"
	case StateOrphanProcess:
		return "◐"
	default:
		return "?"
	}
}

// RunState is the service manager's raw answer for a service, before any
// process-table cross-check.
type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateStopped RunState = "stopped"
	// RunStatePending covers transitional manager states (START_PENDING,
	// activating, ...). The probe classifies these as unknown and lets the
	// next tick resolve them.
	RunStatePending RunState = "pending"
	RunStateUnknown RunState = "unknown"
)

// ServiceDefinition is the static description of one managed service, built
// from configuration at startup and never mutated.
type ServiceDefinition struct {
	Key            string
	Name           string
	ProcessNames   []string
	WorkingDir     string
	ExecutablePath string
	LicenseFile    string
	LaunchArgs     []string
	LogFilePath    string
	AdminExePath   string
}

// Process is one process-table entry matched by name.
type Process struct {
	Pid  int
	Name string
}

// ManagedService pairs a definition with the most recently observed state.
// Owned by the presentation layer; the probe itself never caches.
type ManagedService struct {
	Definition ServiceDefinition
	State      ServiceState
	ObservedAt time.Time
}

// OperationResult is the synchronous outcome of a controller action.
type OperationResult struct {
	Succeeded  bool
	FinalState ServiceState
	ErrorKind  ErrorKind
	Detail     string
	Cleanup    CleanupReport
}

// PartialCleanup reports whether the operation succeeded overall but left
// one or more processes it could not terminate.
func (r OperationResult) PartialCleanup() bool {
	return r.Succeeded && (len(r.Cleanup.Failed) > 0 || r.Cleanup.Err != nil)
}
