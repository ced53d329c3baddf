// Package protocol defines the framed control protocol spoken between the
// supervisor and a simulator process.
//
// Messages are JSON bodies prefixed with a 4-byte big-endian length. The
// length prefix makes frames self-delimiting, so partial reads and writes on
// OS pipes and sockets never desynchronize the stream. The protocol is
// strictly request/response: the supervisor writes one frame and reads one
// frame before writing the next.
//
// Message flow:
//
//	simulator → supervisor: ready          (once, after startup)
//	supervisor → simulator: reset | run
//	simulator → supervisor: ack | nack
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize is the largest frame body accepted on the control channel.
// The protocol carries only small control messages; anything larger
// indicates a desynchronized or corrupt stream.
const MaxFrameSize = 1 << 20

// Kind identifies the type of a control message.
type Kind string

const (
	// KindReady is sent by the simulator once its control channel is up and
	// its configuration has been applied (or rejected).
	KindReady Kind = "ready"

	// KindReset requests the simulator return to its initial state.
	KindReset Kind = "reset"

	// KindRun requests the simulator start executing. The simulator
	// acknowledges acceptance of the command, not completion.
	KindRun Kind = "run"

	// KindAck acknowledges the previous request succeeded.
	KindAck Kind = "ack"

	// KindNack reports the previous request was refused; Reason explains why.
	KindNack Kind = "nack"
)

// Message is one control-channel frame body.
type Message struct {
	Kind Kind `json:"kind"`

	// ConfigOK reports whether the simulator accepted its configuration.
	// Only meaningful on ready messages.
	ConfigOK bool `json:"config_ok,omitempty"`

	// Reason carries the refusal reason on nack messages and rejected
	// ready messages.
	Reason string `json:"reason,omitempty"`
}

// WriteFrame writes msg to w as a length-prefixed JSON frame.
func WriteFrame(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode control message: %w", err)
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("control message exceeds frame limit: %d bytes", len(body))
	}

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)

	// A single Write keeps the prefix and body contiguous so a concurrent
	// writer bug shows up as a framing error rather than silent corruption.
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write control frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r. It blocks until a
// full frame is available, tolerating arbitrarily fragmented reads.
func ReadFrame(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("failed to read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return Message{}, fmt.Errorf("frame size %d exceeds limit %d", size, MaxFrameSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("failed to read frame body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode control message: %w", err)
	}
	return msg, nil
}
