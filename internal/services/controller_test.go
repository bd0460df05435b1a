package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testController(backend Backend) *Controller {
	return NewControllerWithOptions(backend, ControllerOptions{
		PollInterval: time.Millisecond,
		StartTimeout: 250 * time.Millisecond,
		StopTimeout:  250 * time.Millisecond,
	})
}

func TestStartAlreadyActiveIsNoOp(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	ctrl := testController(backend)

	result := ctrl.Start(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Start() failed: %+v", result)
	}
	if result.FinalState != StateActive {
		t.Errorf("FinalState = %s, want %s", result.FinalState, StateActive)
	}
	if calls := backend.callsMatching("start"); len(calls) != 0 {
		t.Errorf("manager start issued %d time(s) for an active service", len(calls))
	}
}

func TestStartFromStopped(t *testing.T) {
	backend := newFakeBackend(RunStateStopped)
	ctrl := testController(backend)

	result := ctrl.Start(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Start() failed: %+v", result)
	}
	if result.FinalState != StateActive {
		t.Errorf("FinalState = %s, want %s", result.FinalState, StateActive)
	}
}

func TestStartCleansOrphansBeforeManagerStart(t *testing.T) {
	backend := newFakeBackend(RunStateStopped)
	backend.procs = []Process{{Pid: 101, Name: "lmgrd.exe"}}
	ctrl := testController(backend)

	result := ctrl.Start(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Start() failed: %+v", result)
	}
	killIdx := backend.callIndex("kill 101")
	startIdx := backend.callIndex("start ")
	if killIdx == -1 {
		t.Fatal("orphan process was never killed")
	}
	if startIdx == -1 {
		t.Fatal("manager start was never issued")
	}
	if killIdx > startIdx {
		t.Errorf("kill (call %d) ran after manager start (call %d)", killIdx, startIdx)
	}
	if len(result.Cleanup.Killed) != 1 {
		t.Errorf("Cleanup.Killed = %v, want [101]", result.Cleanup.Killed)
	}
}

func TestStartTimeout(t *testing.T) {
	backend := newFakeBackend(RunStateStopped)
	// Manager accepts the start command but the service never comes up.
	backend.onStart = func(b *fakeBackend) {}
	ctrl := testController(backend)

	result := ctrl.Start(context.Background(), testDef)

	if result.Succeeded {
		t.Fatal("Start() succeeded, want timeout failure")
	}
	if result.ErrorKind != ErrKindTimeout {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, ErrKindTimeout)
	}
	if result.FinalState != StateStopped {
		t.Errorf("FinalState = %s, want last observed %s", result.FinalState, StateStopped)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	backend := newFakeBackend(RunStateStopped)
	backend.startErr = PermissionDeniedError{Service: testDef.Name}
	ctrl := testController(backend)

	result := ctrl.Start(context.Background(), testDef)

	if result.Succeeded {
		t.Fatal("Start() succeeded, want permission failure")
	}
	if result.ErrorKind != ErrKindPermissionDenied {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, ErrKindPermissionDenied)
	}
}

func TestStopAlreadyStoppedIsNoOp(t *testing.T) {
	backend := newFakeBackend(RunStateStopped)
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Stop() failed: %+v", result)
	}
	if calls := backend.callsMatching("stop"); len(calls) != 0 {
		t.Errorf("manager stop issued %d time(s) for a stopped service", len(calls))
	}
	if calls := backend.callsMatching("kill"); len(calls) != 0 {
		t.Errorf("cleanup ran %d kill(s) on a no-op stop", len(calls))
	}
}

func TestStopSweepsLingeringProcesses(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	// The manager record stops cleanly, yet the process survives in the
	// table until the sweep.
	backend.onStop = func(b *fakeBackend) {
		b.state = RunStateStopped
		b.procs = []Process{{Pid: 101, Name: "lmgrd.exe"}}
	}
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Stop() failed: %+v", result)
	}
	if result.FinalState != StateStopped {
		t.Errorf("FinalState = %s, want %s", result.FinalState, StateStopped)
	}
	if len(result.Cleanup.Killed) != 1 || result.Cleanup.Killed[0] != 101 {
		t.Errorf("Cleanup.Killed = %v, want [101]", result.Cleanup.Killed)
	}
}

func TestStopLeavesUnrelatedProcesses(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.procs = []Process{{Pid: 200, Name: "zooadmin.exe"}}
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Stop() failed: %+v", result)
	}
	found := false
	for _, proc := range backend.procs {
		if proc.Pid == 200 {
			found = true
		}
	}
	if !found {
		t.Error("unrelated process was killed by the sweep")
	}
}

func TestStopPartialCleanupStillSucceeds(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.onStop = func(b *fakeBackend) {
		b.state = RunStateStopped
		b.procs = []Process{
			{Pid: 101, Name: "lmgrd.exe"},
			{Pid: 102, Name: "adskflex.exe"},
		}
	}
	backend.killErr[102] = ProcessControlFailedError{Pid: 102, Cause: errors.New("access denied")}
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Stop() failed: %+v", result)
	}
	if !result.PartialCleanup() {
		t.Error("PartialCleanup() = false, want true")
	}
	if _, ok := result.Cleanup.Failed[102]; !ok {
		t.Errorf("Cleanup.Failed = %v, want entry for 102", result.Cleanup.Failed)
	}
}

func TestStopPermissionDeniedAbortsBeforeSweep(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.procs = []Process{{Pid: 101, Name: "lmgrd.exe"}}
	backend.stopErr = PermissionDeniedError{Service: testDef.Name}
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if result.Succeeded {
		t.Fatal("Stop() succeeded, want permission failure")
	}
	if result.ErrorKind != ErrKindPermissionDenied {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, ErrKindPermissionDenied)
	}
	if calls := backend.callsMatching("kill"); len(calls) != 0 {
		t.Errorf("sweep ran %d kill(s) after a permission failure", len(calls))
	}
}

func TestStopUnknownServiceFailsFast(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.procs = []Process{{Pid: 101, Name: "lmgrd.exe"}}
	backend.stopErr = ServiceNotFoundError{Service: testDef.Name}
	ctrl := testController(backend)

	result := ctrl.Stop(context.Background(), testDef)

	if result.Succeeded {
		t.Fatal("Stop() succeeded, want unknown-service failure")
	}
	if result.ErrorKind != ErrKindServiceNotFound {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, ErrKindServiceNotFound)
	}
	if calls := backend.callsMatching("kill"); len(calls) != 0 {
		t.Errorf("sweep ran %d kill(s) for an unregistered service", len(calls))
	}
}

func TestRestart(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	ctrl := testController(backend)

	result := ctrl.Restart(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Restart() failed: %+v", result)
	}
	if result.FinalState != StateActive {
		t.Errorf("FinalState = %s, want %s", result.FinalState, StateActive)
	}
	stopIdx := backend.callIndex("stop ")
	startIdx := backend.callIndex("start ")
	if stopIdx == -1 || startIdx == -1 || stopIdx > startIdx {
		t.Errorf("call order stop=%d start=%d, want stop before start", stopIdx, startIdx)
	}
}

func TestRestartStopFailureShortCircuits(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.stopErr = PermissionDeniedError{Service: testDef.Name}
	ctrl := testController(backend)

	result := ctrl.Restart(context.Background(), testDef)

	if result.Succeeded {
		t.Fatal("Restart() succeeded, want stop failure")
	}
	if result.ErrorKind != ErrKindPermissionDenied {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, ErrKindPermissionDenied)
	}
	if calls := backend.callsMatching("start"); len(calls) != 0 {
		t.Errorf("start issued %d time(s) after a fatal stop failure", len(calls))
	}
}

func TestRestartCarriesStopCleanup(t *testing.T) {
	backend := newFakeBackend(RunStateRunning)
	backend.onStop = func(b *fakeBackend) {
		b.state = RunStateStopped
		b.procs = []Process{{Pid: 101, Name: "lmgrd.exe"}}
	}
	ctrl := testController(backend)

	result := ctrl.Restart(context.Background(), testDef)

	if !result.Succeeded {
		t.Fatalf("Restart() failed: %+v", result)
	}
	if len(result.Cleanup.Killed) != 1 {
		t.Errorf("Cleanup.Killed = %v, want the stop sweep's [101]", result.Cleanup.Killed)
	}
}
