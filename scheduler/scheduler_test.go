package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/notebook"
)

// fakeGraph is a hand-built Graph double so scheduler tests don't need a
// real notebook/graph rebuild cycle.
type fakeGraph struct {
	affected map[notebook.ID]map[notebook.ID]struct{} // root -> affected set
	reverse  map[notebook.ID]map[notebook.ID]struct{}
	order    map[string][]notebook.ID // affected-set key -> order (keyed by joining ids)
	cycle    []notebook.ID
}

func (g *fakeGraph) DetectCycle() ([]notebook.ID, bool) {
	if len(g.cycle) == 0 {
		return nil, false
	}
	return g.cycle, true
}

func (g *fakeGraph) AffectedSet(root notebook.ID) map[notebook.ID]struct{} {
	return g.affected[root]
}

func (g *fakeGraph) TopologicalOrder(set map[notebook.ID]struct{}) []notebook.ID {
	for _, ord := range g.order {
		if len(ord) == len(set) {
			allIn := true
			for _, id := range ord {
				if _, ok := set[id]; !ok {
					allIn = false
					break
				}
			}
			if allIn {
				return ord
			}
		}
	}
	return nil
}

func (g *fakeGraph) Reverse(c notebook.ID) map[notebook.ID]struct{} {
	return g.reverse[c]
}

// fakeExecutor returns a scripted Result (or error) per cell id.
type fakeExecutor struct {
	results map[notebook.ID]kernel.Result
	errs    map[notebook.ID]error
	calls   []notebook.ID
}

func (e *fakeExecutor) ExecuteCell(ctx context.Context, c *notebook.Cell) (kernel.Result, error) {
	e.calls = append(e.calls, c.ID)
	if err, ok := e.errs[c.ID]; ok {
		return kernel.Result{}, err
	}
	return e.results[c.ID], nil
}

type fakeSink struct {
	events []struct {
		id     notebook.ID
		status notebook.Status
	}
}

func (s *fakeSink) OnCellStatus(c *notebook.Cell, status notebook.Status) {
	s.events = append(s.events, struct {
		id     notebook.ID
		status notebook.Status
	}{c.ID, status})
}

func TestScheduler_BasicCascadeSucceeds(t *testing.T) {
	nb := notebook.New("owner", "nb")
	a := nb.InsertCell(notebook.KindPython, "")
	b := nb.InsertCell(notebook.KindPython, "")
	c := nb.InsertCell(notebook.KindPython, "")

	g := &fakeGraph{
		affected: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {a.ID: {}, b.ID: {}, c.ID: {}},
		},
		reverse: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {},
			b.ID: {a.ID: {}},
			c.ID: {b.ID: {}},
		},
		order: map[string][]notebook.ID{
			"abc": {a.ID, b.ID, c.ID},
		},
	}
	exec := &fakeExecutor{results: map[notebook.ID]kernel.Result{
		a.ID: {Status: kernel.ResultSuccess},
		b.ID: {Status: kernel.ResultSuccess},
		c.ID: {Status: kernel.ResultSuccess},
	}}
	sink := &fakeSink{}

	s := New(zerolog.Nop())
	err := s.Run(context.Background(), nb, g, exec, sink, a.ID)
	require.NoError(t, err)

	assert.Equal(t, []notebook.ID{a.ID, b.ID, c.ID}, exec.calls)
	assert.Equal(t, notebook.StatusSuccess, a.Status)
	assert.Equal(t, notebook.StatusSuccess, b.Status)
	assert.Equal(t, notebook.StatusSuccess, c.Status)
}

func TestScheduler_ErrorBlocksDownstream(t *testing.T) {
	nb := notebook.New("owner", "nb")
	a := nb.InsertCell(notebook.KindPython, "")
	b := nb.InsertCell(notebook.KindPython, "")

	g := &fakeGraph{
		affected: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {a.ID: {}, b.ID: {}},
		},
		reverse: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {},
			b.ID: {a.ID: {}},
		},
		order: map[string][]notebook.ID{"ab": {a.ID, b.ID}},
	}
	exec := &fakeExecutor{results: map[notebook.ID]kernel.Result{
		a.ID: {Status: kernel.ResultError, ErrorText: "ZeroDivisionError: division by zero"},
	}}
	sink := &fakeSink{}

	s := New(zerolog.Nop())
	require.NoError(t, s.Run(context.Background(), nb, g, exec, sink, a.ID))

	assert.Equal(t, notebook.StatusError, a.Status)
	assert.Equal(t, notebook.StatusBlocked, b.Status)
	// b must never have been sent to the executor
	assert.Equal(t, []notebook.ID{a.ID}, exec.calls)
}

func TestScheduler_HistoricalErrorOutsideAffectedSetDoesNotBlock(t *testing.T) {
	// A previously errored (status=error) but B has no dependency on A and
	// is not in this run's affected set; running B alone must succeed.
	nb := notebook.New("owner", "nb")
	a := nb.InsertCell(notebook.KindPython, "")
	a.Status = notebook.StatusError
	b := nb.InsertCell(notebook.KindPython, "")

	g := &fakeGraph{
		affected: map[notebook.ID]map[notebook.ID]struct{}{
			b.ID: {b.ID: {}},
		},
		reverse: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {},
			b.ID: {}, // B has no dependency edge at all
		},
		order: map[string][]notebook.ID{"b": {b.ID}},
	}
	exec := &fakeExecutor{results: map[notebook.ID]kernel.Result{
		b.ID: {Status: kernel.ResultSuccess},
	}}
	sink := &fakeSink{}

	s := New(zerolog.Nop())
	require.NoError(t, s.Run(context.Background(), nb, g, exec, sink, b.ID))

	assert.Equal(t, notebook.StatusSuccess, b.Status)
	assert.Equal(t, []notebook.ID{b.ID}, exec.calls)
}

func TestScheduler_CycleMarksErrorAndBlocked(t *testing.T) {
	nb := notebook.New("owner", "nb")
	a := nb.InsertCell(notebook.KindPython, "")
	b := nb.InsertCell(notebook.KindPython, "")
	c := nb.InsertCell(notebook.KindPython, "") // downstream of the cycle, not part of it

	g := &fakeGraph{
		affected: map[notebook.ID]map[notebook.ID]struct{}{
			a.ID: {a.ID: {}, b.ID: {}, c.ID: {}},
		},
		cycle: []notebook.ID{a.ID, b.ID},
	}
	exec := &fakeExecutor{}
	sink := &fakeSink{}

	s := New(zerolog.Nop())
	err := s.Run(context.Background(), nb, g, exec, sink, a.ID)
	require.Error(t, err)

	assert.Equal(t, notebook.StatusError, a.Status)
	assert.Equal(t, notebook.StatusError, b.Status)
	assert.Equal(t, notebook.StatusBlocked, c.Status)
	assert.Empty(t, exec.calls, "no cell in or downstream of a cycle is ever executed")
}

func TestScheduler_ExecutorTransportErrorFailsCellOnly(t *testing.T) {
	nb := notebook.New("owner", "nb")
	a := nb.InsertCell(notebook.KindPython, "")

	g := &fakeGraph{
		affected: map[notebook.ID]map[notebook.ID]struct{}{a.ID: {a.ID: {}}},
		reverse:  map[notebook.ID]map[notebook.ID]struct{}{a.ID: {}},
		order:    map[string][]notebook.ID{"a": {a.ID}},
	}
	exec := &fakeExecutor{errs: map[notebook.ID]error{a.ID: errors.New("kernel pipe broken")}}
	sink := &fakeSink{}

	s := New(zerolog.Nop())
	require.NoError(t, s.Run(context.Background(), nb, g, exec, sink, a.ID))
	assert.Equal(t, notebook.StatusError, a.Status)
	assert.Contains(t, a.ErrorText, "kernel pipe broken")
}
