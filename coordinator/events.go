package coordinator

import "github.com/carter293/reactive-notebook/notebook"

// EventKind enumerates the observer event stream (SPEC_FULL §6.2).
type EventKind string

const (
	EventCellCreated         EventKind = "cell_created"
	EventCellDeleted         EventKind = "cell_deleted"
	EventCellUpdated         EventKind = "cell_updated"
	EventCellStatus          EventKind = "cell_status"
	EventCellStdout          EventKind = "cell_stdout"
	EventCellOutput          EventKind = "cell_output"
	EventCellError           EventKind = "cell_error"
	EventDBConnectionUpdated EventKind = "db_connection_updated"
)

// Event is one entry in the causally ordered observer stream
// (SPEC_FULL §4.5 "Observer contract").
type Event struct {
	Kind       EventKind
	NotebookID string
	Revision   uint64
	CellID     notebook.ID

	// Populated depending on Kind; see SPEC_FULL §6.2's payload table.
	CellSnapshot   *notebook.Cell
	InsertionIndex int
	Source         string
	Reads          []string
	Writes         []string
	Status         notebook.Status
	StdoutText     string
	Output         *notebook.Output
	ErrorText      string
	ConnString     string
	ConfigOK       bool
	ConfigError    string
}
