// Package notebook defines the core data model: cells, outputs, and the
// notebook that owns them, per the reactive execution core's data model.
package notebook

import "time"

// Kind is the language a cell's source is written in.
type Kind string

const (
	KindPython Kind = "python"
	KindSQL    Kind = "sql"
)

// Status is a cell's runtime-only lifecycle state. It is never persisted.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusBlocked Status = "blocked"
)

// MIME types a cell Output may carry.
const (
	MimeTextPlain   = "text/plain"
	MimeTextHTML    = "text/html"
	MimeImagePNG    = "image/png"
	MimeJSON        = "application/json"
	MimePlotly      = "application/vnd.plotly.v1+json"
	MimeVegaLitePfx = "application/vnd.vegalite.v" // version suffix varies, e.g. "v5+json"
)

// Output is a single tagged payload produced by a cell's execution:
// the trailing expression value, or a captured visualization.
type Output struct {
	Mime     string         `msgpack:"mime"`
	Data     any            `msgpack:"data"`
	Metadata map[string]any `msgpack:"metadata,omitempty"`
}

// Table is the structured shape used for SQL results and pandas DataFrames
// dispatched under application/json.
type Table struct {
	Type    string   `json:"type" msgpack:"type"`
	Columns []string `json:"columns" msgpack:"columns"`
	Rows    [][]any  `json:"rows" msgpack:"rows"`
}

// ID is a cell's stable opaque identity.
type ID string

// Cell is one unit of the notebook: source text plus its derived
// dependencies and its last execution result.
type Cell struct {
	ID     ID
	Kind   Kind
	Source string

	// Reads and Writes are derived from Source by the analyzer and
	// recomputed on every source change. Never set directly by callers.
	Reads  map[string]struct{}
	Writes map[string]struct{}

	Status Status

	Outputs    []Output
	Stdout     string
	ErrorText  string
	UpdatedAt  time.Time

	// Position is the cell's index in the notebook's ordered sequence,
	// used as the topological tie-break (SPEC_FULL §4.2).
	Position int
}

// Clone returns a deep-enough copy for snapshotting into events; Reads and
// Writes are copied since they are mutated in place by the analyzer.
func (c *Cell) Clone() Cell {
	cp := *c
	cp.Reads = copySet(c.Reads)
	cp.Writes = copySet(c.Writes)
	cp.Outputs = append([]Output(nil), c.Outputs...)
	return cp
}

func copySet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// ResetExecutionState clears prior outputs/stdout/error before a run,
// per Scheduler step 4c.
func (c *Cell) ResetExecutionState() {
	c.Outputs = nil
	c.Stdout = ""
	c.ErrorText = ""
}
