// Package kernel defines the Kernel IPC protocol (SPEC_FULL §4.4, §6.4)
// and a Coordinator-side client that frames it as msgpack over a
// subprocess's stdin/stdout.
package kernel

import "github.com/carter293/reactive-notebook/notebook"

// MessageType tags every frame on the wire so the reader can dispatch
// without needing a schema registry.
type MessageType string

const (
	// Inbound (Coordinator -> Kernel)
	MsgRegisterCell      MessageType = "register_cell"
	MsgExecute           MessageType = "execute"
	MsgSetDatabaseConfig MessageType = "set_database_config"
	MsgShutdown          MessageType = "shutdown"

	// Outbound (Kernel -> Coordinator)
	MsgStatus       MessageType = "status"
	MsgStdout       MessageType = "stdout"
	MsgOutput       MessageType = "output"
	MsgResult       MessageType = "result"
	MsgConfigResult MessageType = "config_result"
)

// Frame is the envelope every message travels in. Payload is re-decoded by
// the receiver once Type is known.
type Frame struct {
	Type    MessageType `msgpack:"type"`
	Payload []byte      `msgpack:"payload"`
}

// --- Inbound payloads ---

type RegisterCell struct {
	ID     notebook.ID   `msgpack:"id"`
	Source string        `msgpack:"source"`
	Kind   notebook.Kind `msgpack:"kind"`

	// Position is the cell's current visible index in the notebook, used to
	// name the synthetic traceback/syntax-error filename Cell[<position>]
	// (SPEC_FULL §4.4). The Coordinator resends RegisterCell whenever a
	// cell's position changes due to insertion/deletion elsewhere.
	Position int `msgpack:"position"`

	// PurgeSymbols is set only on a deletion notice (Source == ""): the
	// symbols uniquely owned by the deleted cell (SPEC_FULL §3 "Lifecycle",
	// computed by the Coordinator as W(deleted) minus the union of W over
	// the remaining cells). The Kernel removes these from its namespace.
	PurgeSymbols []string `msgpack:"purge_symbols,omitempty"`
}

type Execute struct {
	ID notebook.ID `msgpack:"id"`
}

type SetDatabaseConfig struct {
	ConnString string `msgpack:"conn_string"`
}

type Shutdown struct{}

// --- Outbound payloads ---

type Status struct {
	ID      notebook.ID `msgpack:"id"`
	Running bool        `msgpack:"running"`
}

type Stdout struct {
	ID   notebook.ID `msgpack:"id"`
	Text string      `msgpack:"text"`
}

type Output struct {
	ID       notebook.ID    `msgpack:"id"`
	Mime     string         `msgpack:"mime"`
	Data     any            `msgpack:"data"`
	Metadata map[string]any `msgpack:"metadata,omitempty"`
}

// ResultStatus is the terminal outcome of one Execute.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

type Result struct {
	ID        notebook.ID  `msgpack:"id"`
	Status    ResultStatus `msgpack:"status"`
	ErrorText string       `msgpack:"error_text,omitempty"`
}

type ConfigResult struct {
	Status    ResultStatus `msgpack:"status"`
	ErrorText string       `msgpack:"error_text,omitempty"`
}
