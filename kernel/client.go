package kernel

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Client is the Coordinator-side handle to one running Kernel subprocess.
// Every outbound frame is written under writeMu, so frames never interleave
// and reach the kernel in send order, and a single reader goroutine decodes
// inbound frames in arrival order (SPEC_FULL §6.4).
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	log zerolog.Logger

	writeMu sync.Mutex

	events chan any // decoded Status/Stdout/Output/Result/ConfigResult
	done   chan struct{}
}

// Start launches the kernel binary at path and begins reading its output.
func Start(path string, log zerolog.Logger) (*Client, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("kernel stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("kernel stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start kernel process: %w", err)
	}

	c := &Client{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		log:    log.With().Str("component", "kernel_client").Logger(),
		events: make(chan any, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the channel of decoded Kernel -> Coordinator messages.
// Values are *Status, *Stdout, *Output, *Result, or *ConfigResult.
func (c *Client) Events() <-chan any {
	return c.events
}

// Done is closed when the read loop exits (kernel process died or its
// stdout closed) — SPEC_FULL §4.4 "KernelFatal".
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)
	r := bufio.NewReader(c.stdout)
	for {
		frame, err := ReadFrame(r)
		if err != nil {
			if err != io.EOF {
				c.log.Warn().Err(err).Msg("kernel read loop terminated")
			}
			return
		}
		msg, err := decodeOutbound(frame)
		if err != nil {
			c.log.Warn().Err(err).Str("type", string(frame.Type)).Msg("failed to decode kernel frame")
			continue
		}
		c.events <- msg
	}
}

func decodeOutbound(f *Frame) (any, error) {
	switch f.Type {
	case MsgStatus:
		var m Status
		return &m, Decode(f, &m)
	case MsgStdout:
		var m Stdout
		return &m, Decode(f, &m)
	case MsgOutput:
		var m Output
		return &m, Decode(f, &m)
	case MsgResult:
		var m Result
		return &m, Decode(f, &m)
	case MsgConfigResult:
		var m ConfigResult
		return &m, Decode(f, &m)
	default:
		return nil, fmt.Errorf("unknown kernel message type %q", f.Type)
	}
}

func (c *Client) send(t MessageType, payload any) error {
	frame, err := Encode(t, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.stdin, frame)
}

func (c *Client) RegisterCell(m RegisterCell) error {
	return c.send(MsgRegisterCell, m)
}

func (c *Client) Execute(m Execute) error {
	return c.send(MsgExecute, m)
}

func (c *Client) SetDatabaseConfig(m SetDatabaseConfig) error {
	return c.send(MsgSetDatabaseConfig, m)
}

// Shutdown asks the kernel to exit cleanly, then waits for the process.
func (c *Client) Shutdown() error {
	if err := c.send(MsgShutdown, Shutdown{}); err != nil {
		return err
	}
	<-c.done
	return c.cmd.Wait()
}

// Kill forcibly terminates the kernel process (used on KernelFatal).
func (c *Client) Kill() error {
	return c.cmd.Process.Kill()
}
