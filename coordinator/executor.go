package coordinator

import (
	"context"
	"fmt"

	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/notebook"
)

// kernelExecutor adapts a Coordinator's kernel.Client into the
// scheduler.Executor interface: send Execute, then drain the kernel's
// event channel until this cell's terminal Result, republishing
// Stdout/Output as cell_stdout/cell_output observer events as they arrive
// (SPEC_FULL §4.5 Observer contract (b)/(d)).
type kernelExecutor struct {
	c *Coordinator
}

func (k *kernelExecutor) ExecuteCell(ctx context.Context, cell *notebook.Cell) (kernel.Result, error) {
	if err := k.c.kernel.Execute(kernel.Execute{ID: cell.ID}); err != nil {
		return kernel.Result{}, fmt.Errorf("send execute to kernel: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return kernel.Result{}, ctx.Err()
		case <-k.c.kernel.Done():
			return kernel.Result{}, fmt.Errorf("kernel process terminated mid-execution")
		case msg, ok := <-k.c.kernel.Events():
			if !ok {
				return kernel.Result{}, fmt.Errorf("kernel event stream closed")
			}
			switch m := msg.(type) {
			case *kernel.Status:
				if m.ID != cell.ID {
					continue
				}
				// SetDatabaseConfig during a different cell is possible
				// but Status for a foreign cell is not, given sequential
				// scheduling; ignore defensively rather than erroring.
			case *kernel.Stdout:
				if m.ID != cell.ID {
					continue
				}
				cell.Stdout += m.Text
				k.c.obs.Publish(Event{Kind: EventCellStdout, NotebookID: k.c.nb.ID, Revision: k.c.nb.Revision, CellID: cell.ID, StdoutText: m.Text})
			case *kernel.Output:
				if m.ID != cell.ID {
					continue
				}
				out := notebook.Output{Mime: m.Mime, Data: m.Data, Metadata: m.Metadata}
				cell.Outputs = append(cell.Outputs, out)
				k.c.obs.Publish(Event{Kind: EventCellOutput, NotebookID: k.c.nb.ID, Revision: k.c.nb.Revision, CellID: cell.ID, Output: &out})
			case *kernel.Result:
				if m.ID != cell.ID {
					continue
				}
				return *m, nil
			case *kernel.ConfigResult:
				// unrelated to cell execution; nothing to do here.
			}
		}
	}
}
