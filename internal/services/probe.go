package services

import (
	"context"
	"time"
)

const DefaultProbeTimeout = 3 * time.Second

// Probe classifies the true operational state of a service from the service
// manager's answer and the process table. Each call is a fresh read; nothing
// is cached between probes.
type Probe struct {
	backend Backend
	timeout time.Duration
}

func NewProbe(backend Backend) *Probe {
	return &Probe{backend: backend, timeout: DefaultProbeTimeout}
}

func NewProbeWithTimeout(backend Backend, timeout time.Duration) *Probe {
	return &Probe{backend: backend, timeout: timeout}
}

// Classify returns exactly one ServiceState, never an error: query failures
// and unrecognized manager states degrade to StateUnknown so the polling
// path always receives a classification.
//
// Decision table, first match wins:
//  1. manager query fails or answers something unrecognized -> unknown
//  2. manager reports running -> active (the manager is authoritative)
//  3. manager reports stopped, no matching process -> stopped
//  4. manager reports stopped, matching process present -> orphan process
func (p *Probe) Classify(ctx context.Context, def ServiceDefinition) ServiceState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	state, err := p.backend.State(ctx, def.Name)
	if err != nil {
		return StateUnknown
	}
	switch state {
	case RunStateRunning:
		return StateActive
	case RunStateStopped:
		if len(def.ProcessNames) == 0 {
			return StateStopped
		}
		procs, err := p.backend.Processes(ctx, def.ProcessNames)
		if err != nil {
			return StateUnknown
		}
		if len(procs) > 0 {
			return StateOrphanProcess
		}
		return StateStopped
	}
	return StateUnknown
}
