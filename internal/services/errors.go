package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse classification carried on an OperationResult.
type ErrorKind string

const (
	ErrKindNone                 ErrorKind = ""
	ErrKindPermissionDenied     ErrorKind = "permission-denied"
	ErrKindServiceNotFound      ErrorKind = "service-not-found"
	ErrKindProcessControlFailed ErrorKind = "process-control-failed"
	ErrKindTimeout              ErrorKind = "timeout"
	ErrKindConfigInvalid        ErrorKind = "config-invalid"
)

// PermissionDeniedError indicates insufficient rights to query or control
// the service manager.
type PermissionDeniedError struct {
	Service string
	Cause   error
}

func (e PermissionDeniedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("permission denied controlling service %s: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("permission denied controlling service %s", e.Service)
}

func (e PermissionDeniedError) Unwrap() error {
	return e.Cause
}

// ServiceNotFoundError indicates the name is not registered with the host's
// service manager.
type ServiceNotFoundError struct {
	Service string
}

func (e ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service not registered on this host: %s", e.Service)
}

// ProcessControlFailedError indicates a targeted process could not be
// terminated.
type ProcessControlFailedError struct {
	Pid   int
	Name  string
	Cause error
}

func (e ProcessControlFailedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("failed to terminate process %s (pid %d): %v", e.Name, e.Pid, e.Cause)
	}
	return fmt.Sprintf("failed to terminate pid %d: %v", e.Pid, e.Cause)
}

func (e ProcessControlFailedError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates an operation did not reach its target state within
// its bound.
type TimeoutError struct {
	Service string
	Op      string
	Last    ServiceState
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out (last observed state: %s)", e.Op, e.Service, e.Last)
}

// ConfigInvalidError indicates the configuration collaborator rejected its
// input. Surfaced by the loader, never produced by the core.
type ConfigInvalidError struct {
	Path  string
	Cause error
}

func (e ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Cause)
}

func (e ConfigInvalidError) Unwrap() error {
	return e.Cause
}

// ServiceCommandError indicates a service-manager command failed for a
// reason other than permissions or a missing registration.
type ServiceCommandError struct {
	Service string
	Command string
	Output  string
	Cause   error
}

func (e ServiceCommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s %s failed: %v (output: %s)", e.Command, e.Service, e.Cause, e.Output)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Service, e.Cause)
}

func (e ServiceCommandError) Unwrap() error {
	return e.Cause
}

// Kind maps an error to the ErrorKind reported on an OperationResult.
func Kind(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}
	var perm PermissionDeniedError
	if errors.As(err, &perm) {
		return ErrKindPermissionDenied
	}
	var notFound ServiceNotFoundError
	if errors.As(err, &notFound) {
		return ErrKindServiceNotFound
	}
	var proc ProcessControlFailedError
	if errors.As(err, &proc) {
		return ErrKindProcessControlFailed
	}
	var timeout TimeoutError
	if errors.As(err, &timeout) {
		return ErrKindTimeout
	}
	var invalid ConfigInvalidError
	if errors.As(err, &invalid) {
		return ErrKindConfigInvalid
	}
	return ErrKindNone
}
