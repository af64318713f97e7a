// Package scheduler implements the Scheduler (SPEC_FULL §4.3): given a root
// cell, compute the affected set, order it topologically, and drive
// execution against the Kernel one cell at a time.
//
// Grounded on the teacher's internal/application/executor/engine.go
// executeSequential path; wave-based parallel execution is deliberately
// not ported (SPEC_FULL §4.3 "No parallelism within a run").
package scheduler

import (
	"context"
	"fmt"

	corerr "github.com/carter293/reactive-notebook/internal/errors"
	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/notebook"
	"github.com/rs/zerolog"
)

// Graph is the subset of graph.Graph the scheduler needs; kept as an
// interface so tests can supply a fake without building a real Notebook.
type Graph interface {
	DetectCycle() ([]notebook.ID, bool)
	AffectedSet(root notebook.ID) map[notebook.ID]struct{}
	TopologicalOrder(set map[notebook.ID]struct{}) []notebook.ID
	Reverse(c notebook.ID) map[notebook.ID]struct{}
}

// Executor runs a single cell against the Kernel and blocks until its
// terminal Result arrives, handling intermediate Stdout/Output events itself
// as they're observed. Implemented by coordinator.kernelExecutor.
type Executor interface {
	ExecuteCell(ctx context.Context, c *notebook.Cell) (kernel.Result, error)
}

// EventSink receives status transitions as the scheduler drives a run, so
// the Coordinator can translate them into observer events (SPEC_FULL §4.5).
type EventSink interface {
	OnCellStatus(c *notebook.Cell, status notebook.Status)
}

type Scheduler struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{log: log.With().Str("component", "scheduler").Logger()}
}

// Run executes SPEC_FULL §4.3's algorithm against the given notebook
// starting at rootID. Callers must hold the notebook's mutation lock for
// the duration of Run (SPEC_FULL §4.3 "idempotent with respect to
// already-running schedules ... serialized by the notebook's mutation
// lock").
func (s *Scheduler) Run(ctx context.Context, nb *notebook.Notebook, g Graph, exec Executor, sink EventSink, rootID notebook.ID) error {
	affected := g.AffectedSet(rootID)

	if cycle, ok := g.DetectCycle(); ok {
		inCycle := map[notebook.ID]struct{}{}
		for _, id := range cycle {
			if _, isAffected := affected[id]; isAffected {
				inCycle[id] = struct{}{}
			}
		}
		if len(inCycle) > 0 {
			return s.failCycle(nb, affected, inCycle, sink)
		}
	}

	order := g.TopologicalOrder(affected)
	finished := make(map[notebook.ID]notebook.Status, len(order))

	for _, id := range order {
		c, ok := nb.Cell(id)
		if !ok {
			continue
		}

		blocked := false
		for dep := range g.Reverse(id) {
			if _, inRun := affected[dep]; !inRun {
				continue // SPEC_FULL §4.3 critical correctness point
			}
			if st, done := finished[dep]; done && st != notebook.StatusSuccess {
				blocked = true
				break
			}
		}
		if blocked {
			c.Status = notebook.StatusBlocked
			finished[id] = notebook.StatusBlocked
			sink.OnCellStatus(c, notebook.StatusBlocked)
			continue
		}

		c.ResetExecutionState()
		c.Status = notebook.StatusRunning
		sink.OnCellStatus(c, notebook.StatusRunning)

		result, err := exec.ExecuteCell(ctx, c)
		if err != nil {
			c.Status = notebook.StatusError
			c.ErrorText = err.Error()
			finished[id] = notebook.StatusError
			sink.OnCellStatus(c, notebook.StatusError)
			continue
		}

		if result.Status == kernel.ResultSuccess {
			c.Status = notebook.StatusSuccess
			finished[id] = notebook.StatusSuccess
		} else {
			c.Status = notebook.StatusError
			c.ErrorText = result.ErrorText
			finished[id] = notebook.StatusError
		}
		sink.OnCellStatus(c, c.Status)
	}

	return nil
}

func (s *Scheduler) failCycle(nb *notebook.Notebook, affected, inCycle map[notebook.ID]struct{}, sink EventSink) error {
	msg := fmt.Sprintf("cycle detected among %d cell(s)", len(inCycle))
	for id := range inCycle {
		c, ok := nb.Cell(id)
		if !ok {
			continue
		}
		c.Status = notebook.StatusError
		c.ErrorText = msg
		sink.OnCellStatus(c, notebook.StatusError)
	}
	for id := range affected {
		if _, already := inCycle[id]; already {
			continue
		}
		c, ok := nb.Cell(id)
		if !ok {
			continue
		}
		c.Status = notebook.StatusBlocked
		sink.OnCellStatus(c, notebook.StatusBlocked)
	}
	return corerr.New(corerr.CodeCycle, msg, nil)
}
