package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CleanupReport is the complete accounting of one termination sweep.
// Failures are collected per pid; one stubborn process never masks the
// processes that were killed.
type CleanupReport struct {
	Killed []int
	Failed map[int]error
	// Err is set when the process table itself could not be enumerated.
	Err error
}

func (r CleanupReport) Empty() bool {
	return len(r.Killed) == 0 && len(r.Failed) == 0 && r.Err == nil
}

// Summary renders the report for operation detail strings.
func (r CleanupReport) Summary() string {
	if r.Empty() {
		return "no residual processes"
	}
	parts := make([]string, 0, 3)
	if r.Err != nil {
		parts = append(parts, fmt.Sprintf("process enumeration failed: %v", r.Err))
	}
	if len(r.Killed) > 0 {
		parts = append(parts, fmt.Sprintf("killed %d residual process(es) %v", len(r.Killed), r.Killed))
	}
	if len(r.Failed) > 0 {
		pids := make([]int, 0, len(r.Failed))
		for pid := range r.Failed {
			pids = append(pids, pid)
		}
		sort.Ints(pids)
		parts = append(parts, fmt.Sprintf("failed to kill %d process(es) %v", len(r.Failed), pids))
	}
	return strings.Join(parts, "; ")
}

// Cleaner terminates residual processes that match a service's known
// executable names.
type Cleaner struct {
	backend Backend
}

func NewCleaner(backend Backend) *Cleaner {
	return &Cleaner{backend: backend}
}

// Terminate kills every process whose executable name is in names. Each
// termination is attempted independently; the report carries both outcomes.
func (c *Cleaner) Terminate(ctx context.Context, names []string) CleanupReport {
	report := CleanupReport{Failed: make(map[int]error)}
	if len(names) == 0 {
		return report
	}
	procs, err := c.backend.Processes(ctx, names)
	if err != nil {
		report.Err = err
		return report
	}
	for _, proc := range procs {
		if err := c.backend.Kill(ctx, proc.Pid); err != nil {
			report.Failed[proc.Pid] = err
			continue
		}
		report.Killed = append(report.Killed, proc.Pid)
	}
	return report
}
