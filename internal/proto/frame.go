// Package proto is the wire protocol between the copy engine and its
// process-mode workers: length-prefixed frames carrying MessagePack payloads
// over a child's stdin/stdout.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes:
	// 4 bytes frame length + 1 byte message type.
	FrameHeaderSize = 5

	// MaxFrameSize is the maximum allowed frame size (including header).
	// Frames only carry paths and short messages.
	MaxFrameSize = 1 << 20 // 1 MiB
)

// Frame is a single protocol message on the wire.
type Frame struct {
	Payload []byte
	MsgType byte
}

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteFrame writes a length-prefixed frame to w.
// Wire format: [4-byte length (big-endian)][1-byte msg type][payload]
// The length field covers the message type and the payload. Header and
// payload go out in a single Write so a frame is never interleaved on a pipe.
//
//nolint:gosec // G115: payload length bounded by MaxFrameSize check
func WriteFrame(w io.Writer, f Frame) error {
	totalLen := uint32(1 + len(f.Payload))
	if int(totalLen)+4 > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], totalLen)
	buf[4] = f.MsgType
	copy(buf[FrameHeaderSize:], f.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads a length-prefixed frame from r. A clean end of stream
// before the first header byte returns io.EOF unwrapped.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	totalLen := binary.BigEndian.Uint32(header[0:4])
	if int64(totalLen)+4 > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	if totalLen < 1 {
		return Frame{}, fmt.Errorf("frame too small: length %d", totalLen)
	}

	f := Frame{MsgType: header[4]}

	payloadLen := totalLen - 1
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}

	return f, nil
}
