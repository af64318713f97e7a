// Package coordinator implements the Coordinator (SPEC_FULL §4.5): the
// notebook-scoped object bridging the outside world to the Kernel,
// serializing mutations, and fanning out observer events.
//
// Grounded on the teacher's internal/infrastructure/monitoring.ObserverManager
// for event broadcasting and internal/infrastructure/websocket.Hub for the
// non-blocking best-effort delivery pattern.
package coordinator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/analyzer"
	corerr "github.com/carter293/reactive-notebook/internal/errors"
	"github.com/carter293/reactive-notebook/graph"
	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/notebook"
	"github.com/carter293/reactive-notebook/scheduler"
)

// Storage is the persistence contract the core consumes (SPEC_FULL §6.1).
type Storage interface {
	Save(ctx context.Context, nb *notebook.Notebook) error
	Load(ctx context.Context, id string) (*notebook.Notebook, error)
	List(ctx context.Context, owner string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Coordinator owns one notebook's in-memory state and its bridge to a
// Kernel process.
type Coordinator struct {
	nb      *notebook.Notebook
	graph   *graph.Graph
	kernel  *kernel.Client
	storage Storage
	sched   *scheduler.Scheduler
	obs     *ObserverManager
	log     zerolog.Logger

	// invalid is set once a KernelFatal condition is observed; every
	// subsequent operation fails fast (SPEC_FULL §9 Open Question 1:
	// "fail the session", no auto-replay).
	invalid bool
}

// New binds a Coordinator to an already-loaded notebook and a running
// kernel client.
func New(nb *notebook.Notebook, kc *kernel.Client, storage Storage, log zerolog.Logger) *Coordinator {
	log = log.With().Str("component", "coordinator").Str("notebook", nb.ID).Logger()
	c := &Coordinator{
		nb:      nb,
		graph:   graph.New(),
		kernel:  kc,
		storage: storage,
		sched:   scheduler.New(log),
		obs:     NewObserverManager(log),
		log:     log,
	}
	// R/W is never persisted (SPEC_FULL §3 "Status is runtime-only... R and
	// W are derived"); re-derive it for every cell once on load before the
	// first graph build, per notebook/serialize.go's LoadDTOs contract.
	for _, cell := range nb.Cells() {
		analyzer.Apply(cell)
	}
	c.graph.Rebuild(nb.Cells())
	go c.watchKernelFatal()
	return c
}

func (c *Coordinator) watchKernelFatal() {
	<-c.kernel.Done()
	c.nb.Mu.Lock()
	c.invalid = true
	c.nb.Mu.Unlock()
	c.log.Error().Msg("kernel process terminated; notebook session invalidated")
}

// Subscribe/Unsubscribe expose the observer fan-out to transports.
func (c *Coordinator) Subscribe() *Observer   { return c.obs.Subscribe() }
func (c *Coordinator) Unsubscribe(o *Observer) { c.obs.Unsubscribe(o) }

// Bind performs the "Database config on load" step: if the notebook has a
// non-empty connection string, send SetDatabaseConfig once at startup
// (SPEC_FULL §4.5).
func (c *Coordinator) Bind(ctx context.Context) error {
	if c.nb.ConnectionString == "" {
		return nil
	}
	return c.kernel.SetDatabaseConfig(kernel.SetDatabaseConfig{ConnString: c.nb.ConnectionString})
}

func (c *Coordinator) checkValid() error {
	if c.invalid {
		return corerr.New(corerr.CodeKernelFatal, "kernel session invalidated", nil)
	}
	return nil
}

// CreateCell implements the create_cell inbound command (SPEC_FULL §6.3).
func (c *Coordinator) CreateCell(ctx context.Context, kind notebook.Kind, after notebook.ID) (*notebook.Cell, error) {
	c.nb.Mu.Lock()
	defer c.nb.Mu.Unlock()
	if err := c.checkValid(); err != nil {
		return nil, err
	}

	cell := c.nb.InsertCell(kind, after)
	idx := cell.Position
	c.rebuildGraphLocked()
	rev := c.nb.BumpRevision()

	if err := c.storage.Save(ctx, c.nb); err != nil {
		return nil, fmt.Errorf("persist notebook: %w", err)
	}

	c.obs.Publish(Event{Kind: EventCellCreated, NotebookID: c.nb.ID, Revision: rev, CellID: cell.ID, CellSnapshot: snapshot(cell), InsertionIndex: idx})

	if err := c.kernel.RegisterCell(kernel.RegisterCell{ID: cell.ID, Source: cell.Source, Kind: cell.Kind, Position: cell.Position}); err != nil {
		return nil, fmt.Errorf("register cell with kernel: %w", err)
	}
	// Every cell after the insertion point shifted down one visible index;
	// resend RegisterCell so the kernel's Cell[<position>] traceback naming
	// (SPEC_FULL §4.4) stays correct without waiting for those cells' next edit.
	return cell, c.resyncPositionsFrom(idx + 1)
}

// resyncPositionsFrom re-registers every cell at position >= from with its
// current position, source, and kind, so the kernel's view of Cell[<position>]
// never drifts after an insertion/deletion shifts later cells.
func (c *Coordinator) resyncPositionsFrom(from int) error {
	for _, cell := range c.nb.Cells() {
		if cell.Position < from {
			continue
		}
		if err := c.kernel.RegisterCell(kernel.RegisterCell{ID: cell.ID, Source: cell.Source, Kind: cell.Kind, Position: cell.Position}); err != nil {
			return fmt.Errorf("resync position for cell %s: %w", cell.ID, err)
		}
	}
	return nil
}

// DeleteCell implements delete_cell, purging the deleted cell's uniquely
// owned namespace symbols (SPEC_FULL §9 Open Question 2: resolved "yes,
// mandatory").
func (c *Coordinator) DeleteCell(ctx context.Context, id notebook.ID) error {
	c.nb.Mu.Lock()
	defer c.nb.Mu.Unlock()
	if err := c.checkValid(); err != nil {
		return err
	}

	cell, ok := c.nb.Cell(id)
	if !ok {
		return fmt.Errorf("cell %s not found", id)
	}
	owned := cell.Writes
	deletedAt := cell.Position

	if !c.nb.DeleteCell(id) {
		return fmt.Errorf("cell %s not found", id)
	}
	c.rebuildGraphLocked()
	rev := c.nb.BumpRevision()

	if err := c.storage.Save(ctx, c.nb); err != nil {
		return fmt.Errorf("persist notebook: %w", err)
	}

	c.obs.Publish(Event{Kind: EventCellDeleted, NotebookID: c.nb.ID, Revision: rev, CellID: id})

	stillWritten := map[string]struct{}{}
	for _, other := range c.nb.Cells() {
		for w := range other.Writes {
			stillWritten[w] = struct{}{}
		}
	}
	var purge []string
	for w := range owned {
		if _, ok := stillWritten[w]; !ok {
			purge = append(purge, w)
		}
	}
	if err := c.kernel.RegisterCell(kernel.RegisterCell{ID: id, Source: "", Kind: cell.Kind, PurgeSymbols: purge}); err != nil {
		return err
	}
	// Every cell after the deleted one shifted up one visible index; keep
	// the kernel's Cell[<position>] naming in sync (SPEC_FULL §4.4).
	return c.resyncPositionsFrom(deletedAt)
}

// UpdateCell implements update_cell: re-derive R/W, rebuild the graph,
// persist, notify the kernel.
func (c *Coordinator) UpdateCell(ctx context.Context, id notebook.ID, source string) error {
	c.nb.Mu.Lock()
	defer c.nb.Mu.Unlock()
	if err := c.checkValid(); err != nil {
		return err
	}

	cell, ok := c.nb.Cell(id)
	if !ok {
		return fmt.Errorf("cell %s not found", id)
	}
	cell.Source = source
	analyzer.Apply(cell)
	c.rebuildGraphLocked()
	rev := c.nb.BumpRevision()

	if err := c.storage.Save(ctx, c.nb); err != nil {
		return fmt.Errorf("persist notebook: %w", err)
	}

	reads := setToSlice(cell.Reads)
	writes := setToSlice(cell.Writes)
	c.obs.Publish(Event{Kind: EventCellUpdated, NotebookID: c.nb.ID, Revision: rev, CellID: id, Source: source, Reads: reads, Writes: writes, Status: cell.Status})

	return c.kernel.RegisterCell(kernel.RegisterCell{ID: id, Source: source, Kind: cell.Kind, Position: cell.Position})
}

// SetDBConnection implements set_db_connection. The in-memory connection
// string is rolled back if the config cannot be sent to the kernel or the
// notebook cannot be persisted; the kernel's ConfigResult reply is not
// awaited, so a rejection reported there does not roll it back.
func (c *Coordinator) SetDBConnection(ctx context.Context, connString string) error {
	c.nb.Mu.Lock()
	defer c.nb.Mu.Unlock()
	if err := c.checkValid(); err != nil {
		return err
	}

	prior := c.nb.ConnectionString
	c.nb.ConnectionString = connString

	if err := c.kernel.SetDatabaseConfig(kernel.SetDatabaseConfig{ConnString: connString}); err != nil {
		c.nb.ConnectionString = prior
		return fmt.Errorf("send db config to kernel: %w", err)
	}

	rev := c.nb.BumpRevision()
	if err := c.storage.Save(ctx, c.nb); err != nil {
		c.nb.ConnectionString = prior
		return fmt.Errorf("persist notebook: %w", err)
	}

	c.obs.Publish(Event{Kind: EventDBConnectionUpdated, NotebookID: c.nb.ID, Revision: rev, ConnString: connString, ConfigOK: true})
	return nil
}

// RunCell implements run_cell, dispatching to the Scheduler.
func (c *Coordinator) RunCell(ctx context.Context, rootID notebook.ID) error {
	c.nb.Mu.Lock()
	defer c.nb.Mu.Unlock()
	if err := c.checkValid(); err != nil {
		return err
	}
	return c.sched.Run(ctx, c.nb, c.graph, &kernelExecutor{c: c}, c, rootID)
}

func (c *Coordinator) rebuildGraphLocked() {
	c.graph.Rebuild(c.nb.Cells())
}

// OnCellStatus implements scheduler.EventSink, translating status
// transitions into cell_status observer events. cell_error, when present,
// is published before the terminal cell_status=error event (SPEC_FULL §8
// scenario 2: error text precedes the terminal status).
func (c *Coordinator) OnCellStatus(cell *notebook.Cell, status notebook.Status) {
	if status == notebook.StatusError && cell.ErrorText != "" {
		c.obs.Publish(Event{Kind: EventCellError, NotebookID: c.nb.ID, Revision: c.nb.Revision, CellID: cell.ID, ErrorText: cell.ErrorText})
	}
	c.obs.Publish(Event{Kind: EventCellStatus, NotebookID: c.nb.ID, Revision: c.nb.Revision, CellID: cell.ID, Status: status})
}

func snapshot(c *notebook.Cell) *notebook.Cell {
	cp := c.Clone()
	return &cp
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
