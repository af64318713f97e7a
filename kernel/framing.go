package kernel

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteFrame writes one length-prefixed msgpack frame: a big-endian
// uint32 byte length followed by the encoded Frame. Shared by both ends
// of the Kernel IPC channel (the Coordinator-side Client and cmd/kernel)
// so the wire format has exactly one implementation.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := msgpack.Marshal(&f)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed msgpack frame written by WriteFrame.
func ReadFrame(r *bufio.Reader) (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	var f Frame
	if err := msgpack.Unmarshal(buf, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Encode wraps a typed payload into a Frame ready for WriteFrame.
func Encode(t MessageType, payload any) (Frame, error) {
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: body}, nil
}

// Decode unmarshals a payload of the given Go type from f.Payload.
func Decode(f *Frame, out any) error {
	return msgpack.Unmarshal(f.Payload, out)
}
