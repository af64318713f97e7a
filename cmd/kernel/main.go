// Command kernel is the reference implementation of the isolated Kernel
// process described in SPEC_FULL §4.4: it owns the Python namespace and
// the SQL connection, executes one cell at a time, and streams events back
// to the Coordinator over framed msgpack on stdout (SPEC_FULL §6.4).
package main

import (
	"bufio"
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/notebook"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "kernel").Logger()

	py, err := startPythonRuntime()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start embedded python runtime")
	}

	k := &kernelProcess{
		py:      py,
		ns:      kernel.NewNamespace(),
		sources: map[notebook.ID]registration{},
		writer:  bufio.NewWriter(os.Stdout),
		log:     log,
	}
	k.run(os.Stdin)
}

type registration struct {
	source   string
	kind     notebook.Kind
	position int
}

type kernelProcess struct {
	py         *pythonRuntime
	ns         *kernel.Namespace
	connString string

	sources map[notebook.ID]registration

	writer *bufio.Writer
	log    zerolog.Logger
}

func (k *kernelProcess) run(stdin *os.File) {
	r := bufio.NewReader(stdin)
	for {
		frame, err := kernel.ReadFrame(r)
		if err != nil {
			k.log.Info().Err(err).Msg("input stream closed, exiting")
			return
		}
		switch frame.Type {
		case kernel.MsgRegisterCell:
			var m kernel.RegisterCell
			if err := kernel.Decode(frame, &m); err != nil {
				continue
			}
			k.handleRegisterCell(m)
		case kernel.MsgExecute:
			var m kernel.Execute
			if err := kernel.Decode(frame, &m); err != nil {
				continue
			}
			k.handleExecute(m)
		case kernel.MsgSetDatabaseConfig:
			var m kernel.SetDatabaseConfig
			if err := kernel.Decode(frame, &m); err != nil {
				continue
			}
			k.handleSetDatabaseConfig(m)
		case kernel.MsgShutdown:
			k.py.shutdown()
			return
		}
	}
}

func (k *kernelProcess) handleRegisterCell(m kernel.RegisterCell) {
	if m.Source == "" {
		// deletion notice: free the symbols the Coordinator computed as
		// uniquely owned by this cell (SPEC_FULL §3 "Lifecycle", §9 Open
		// Question 2: resolved mandatory) from both namespaces.
		delete(k.sources, m.ID)
		k.purgeSymbols(m.PurgeSymbols)
		return
	}
	k.sources[m.ID] = registration{source: m.Source, kind: m.Kind, position: m.Position}
}

// purgeSymbols removes symbols from both the Go-side namespace (read by SQL
// cell template binding) and the embedded Python runtime's NAMESPACE dict.
func (k *kernelProcess) purgeSymbols(symbols []string) {
	if len(symbols) == 0 {
		return
	}
	for _, s := range symbols {
		k.ns.Delete(s)
	}
	if err := k.py.purge(symbols); err != nil {
		k.log.Warn().Err(err).Msg("failed to purge symbols from python runtime")
	}
}

func (k *kernelProcess) handleSetDatabaseConfig(m kernel.SetDatabaseConfig) {
	k.connString = m.ConnString
	k.send(kernel.MsgConfigResult, kernel.ConfigResult{Status: kernel.ResultSuccess})
}

func (k *kernelProcess) handleExecute(m kernel.Execute) {
	reg, ok := k.sources[m.ID]
	if !ok {
		k.send(kernel.MsgResult, kernel.Result{ID: m.ID, Status: kernel.ResultError, ErrorText: "cell not registered"})
		return
	}

	k.send(kernel.MsgStatus, kernel.Status{ID: m.ID, Running: true})

	if reg.kind == notebook.KindSQL {
		k.executeSQLCell(m.ID, reg.source)
		return
	}
	k.executePythonCell(m.ID, reg.source, reg.position)
}

func (k *kernelProcess) executeSQLCell(id notebook.ID, source string) {
	out, stdout, err := executeSQL(context.Background(), k.connString, source, k.ns)
	if err != nil {
		k.send(kernel.MsgResult, kernel.Result{ID: id, Status: kernel.ResultError, ErrorText: err.Error()})
		return
	}
	if stdout != "" {
		k.send(kernel.MsgStdout, kernel.Stdout{ID: id, Text: stdout})
	}
	if out != nil {
		k.send(kernel.MsgOutput, kernel.Output{ID: id, Mime: out.Mime, Data: out.Data, Metadata: out.Metadata})
	}
	k.send(kernel.MsgResult, kernel.Result{ID: id, Status: kernel.ResultSuccess})
}

func (k *kernelProcess) executePythonCell(id notebook.ID, source string, position int) {
	result, err := k.py.execute(string(id), source, position, func(ev driverEvent) {
		switch ev.Type {
		case "stdout":
			k.send(kernel.MsgStdout, kernel.Stdout{ID: id, Text: ev.Text})
		case "output":
			k.send(kernel.MsgOutput, kernel.Output{ID: id, Mime: ev.Mime, Data: ev.Data, Metadata: ev.Metadata})
		}
	})
	if err != nil {
		k.send(kernel.MsgResult, kernel.Result{ID: id, Status: kernel.ResultError, ErrorText: err.Error()})
		return
	}

	status := kernel.ResultSuccess
	if result.Status == "error" {
		status = kernel.ResultError
	} else {
		for name, value := range result.Bindings {
			k.ns.Set(name, value)
		}
	}
	k.send(kernel.MsgResult, kernel.Result{ID: id, Status: status, ErrorText: result.ErrorText})
}

func (k *kernelProcess) send(t kernel.MessageType, payload any) {
	frame, err := kernel.Encode(t, payload)
	if err != nil {
		k.log.Error().Err(err).Str("type", string(t)).Msg("failed to encode outbound frame")
		return
	}
	if err := kernel.WriteFrame(k.writer, frame); err != nil {
		k.log.Error().Err(err).Msg("failed to write outbound frame")
		return
	}
	k.writer.Flush()
}
