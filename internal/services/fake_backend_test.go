package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeBackend is an in-memory host: one service manager record plus a
// process table. Every call is recorded so tests can assert ordering.
type fakeBackend struct {
	mu sync.Mutex

	state    RunState
	stateErr error
	procs    []Process
	procsErr error
	startErr error
	stopErr  error
	killErr  map[int]error
	paths    map[string]bool

	calls []string

	// onStart/onStop mutate the fake host after the manager command, like
	// the real manager transitioning a service.
	onStart func(b *fakeBackend)
	onStop  func(b *fakeBackend)
}

func newFakeBackend(state RunState) *fakeBackend {
	return &fakeBackend{
		state:   state,
		killErr: make(map[int]error),
		paths:   make(map[string]bool),
		onStart: func(b *fakeBackend) { b.state = RunStateRunning },
		onStop:  func(b *fakeBackend) { b.state = RunStateStopped },
	}
}

func (b *fakeBackend) record(call string) {
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) State(ctx context.Context, service string) (RunState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("state " + service)
	if b.stateErr != nil {
		return RunStateUnknown, b.stateErr
	}
	return b.state, nil
}

func (b *fakeBackend) StartService(ctx context.Context, service string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("start " + service)
	if b.startErr != nil {
		return b.startErr
	}
	if b.onStart != nil {
		b.onStart(b)
	}
	return nil
}

func (b *fakeBackend) StopService(ctx context.Context, service string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("stop " + service)
	if b.stopErr != nil {
		return b.stopErr
	}
	if b.onStop != nil {
		b.onStop(b)
	}
	return nil
}

func (b *fakeBackend) Processes(ctx context.Context, names []string) ([]Process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("processes " + strings.Join(names, ","))
	if b.procsErr != nil {
		return nil, b.procsErr
	}
	var matched []Process
	for _, proc := range b.procs {
		for _, name := range names {
			if strings.EqualFold(proc.Name, name) {
				matched = append(matched, proc)
				break
			}
		}
	}
	return matched, nil
}

func (b *fakeBackend) Kill(ctx context.Context, pid int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(fmt.Sprintf("kill %d", pid))
	if err, ok := b.killErr[pid]; ok {
		return err
	}
	remaining := b.procs[:0]
	for _, proc := range b.procs {
		if proc.Pid != pid {
			remaining = append(remaining, proc)
		}
	}
	b.procs = remaining
	return nil
}

func (b *fakeBackend) PathExists(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paths[path]
}

func (b *fakeBackend) callsMatching(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []string
	for _, call := range b.calls {
		if strings.HasPrefix(call, prefix) {
			matched = append(matched, call)
		}
	}
	return matched
}

func (b *fakeBackend) callIndex(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, call := range b.calls {
		if strings.HasPrefix(call, prefix) {
			return i
		}
	}
	return -1
}
