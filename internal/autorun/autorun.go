// Package autorun implements the reactive auto-run driver (SPEC_FULL §4.5,
// §2.3): after a cell edit, wait for a quiet period before triggering a run,
// so a burst of keystrokes collapses into a single execution.
//
// Grounded on the teacher's internal/application/executor/trigger_manager.go
// cooldown/scheduling pattern (AutoTriggerScheduler's ticker loop), adapted
// from periodic polling to a per-cell debounce timer.
package autorun

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/notebook"
)

// Runner is the subset of Coordinator that autorun needs.
type Runner interface {
	RunCell(ctx context.Context, rootID notebook.ID) error
}

// Driver debounces edits to a single notebook's cells and triggers RunCell
// once no further edit arrives within the configured delay.
type Driver struct {
	mu      sync.Mutex
	timers  map[notebook.ID]*time.Timer
	delay   time.Duration
	runner  Runner
	log     zerolog.Logger
	ctx     context.Context
}

func New(ctx context.Context, runner Runner, delay time.Duration, log zerolog.Logger) *Driver {
	return &Driver{
		timers: make(map[notebook.ID]*time.Timer),
		delay:  delay,
		runner: runner,
		log:    log.With().Str("component", "autorun").Logger(),
		ctx:    ctx,
	}
}

// NotifyEdited (re)starts the debounce timer for a cell. Call this from
// UpdateCell's success path.
func (d *Driver) NotifyEdited(id notebook.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[id]; ok {
		t.Stop()
	}
	d.timers[id] = time.AfterFunc(d.delay, func() { d.fire(id) })
}

// Cancel stops a pending auto-run for a cell, e.g. on deletion.
func (d *Driver) Cancel(id notebook.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}
}

func (d *Driver) fire(id notebook.ID) {
	d.mu.Lock()
	delete(d.timers, id)
	d.mu.Unlock()

	if err := d.runner.RunCell(d.ctx, id); err != nil {
		d.log.Warn().Err(err).Str("cell_id", string(id)).Msg("auto-run failed")
	}
}
