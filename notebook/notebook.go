package notebook

import (
	"sync"

	"github.com/google/uuid"
)

// Notebook owns an ordered sequence of cells, the derived dependency graph
// projection (maintained by the graph package, not duplicated here), and a
// mutation lock serializing all mutating operations (SPEC_FULL §3, §5).
type Notebook struct {
	ID              string
	Owner           string
	Name            string
	ConnectionString string

	// Revision strictly increases on every successful mutation (invariant 5).
	Revision uint64

	// Mu serializes create/delete/update/run_cell/set_db_connection.
	// The Coordinator is the only caller expected to hold this lock; it is
	// exported so tests can assert serialization directly.
	Mu sync.Mutex

	cells    []*Cell
	byID     map[ID]*Cell
}

// New creates an empty notebook with a fresh identity.
func New(owner, name string) *Notebook {
	return &Notebook{
		ID:    uuid.NewString(),
		Owner: owner,
		Name:  name,
		byID:  make(map[ID]*Cell),
	}
}

// Cells returns the notebook's cells in position order. Callers must not
// mutate the returned slice's backing cells outside the mutation lock.
func (n *Notebook) Cells() []*Cell {
	return n.cells
}

// Cell looks up a cell by id.
func (n *Notebook) Cell(id ID) (*Cell, bool) {
	c, ok := n.byID[id]
	return c, ok
}

// InsertCell adds a new cell after the cell at `after` (or at the end if
// after is empty/not found), reindexing positions, and returns it.
func (n *Notebook) InsertCell(kind Kind, after ID) *Cell {
	c := &Cell{
		ID:     ID(uuid.NewString()),
		Kind:   kind,
		Status: StatusIdle,
		Reads:  map[string]struct{}{},
		Writes: map[string]struct{}{},
	}

	idx := len(n.cells)
	if after != "" {
		for i, existing := range n.cells {
			if existing.ID == after {
				idx = i + 1
				break
			}
		}
	}

	n.cells = append(n.cells, nil)
	copy(n.cells[idx+1:], n.cells[idx:])
	n.cells[idx] = c
	n.byID[c.ID] = c
	n.reindex()
	return c
}

// DeleteCell removes a cell by id, reindexing positions. Returns false if
// the cell did not exist.
func (n *Notebook) DeleteCell(id ID) bool {
	for i, c := range n.cells {
		if c.ID == id {
			n.cells = append(n.cells[:i], n.cells[i+1:]...)
			delete(n.byID, id)
			n.reindex()
			return true
		}
	}
	return false
}

func (n *Notebook) reindex() {
	for i, c := range n.cells {
		c.Position = i
	}
}

// BumpRevision increments the notebook's revision counter. Called once per
// successful mutation by the Coordinator, under the mutation lock.
func (n *Notebook) BumpRevision() uint64 {
	n.Revision++
	return n.Revision
}
