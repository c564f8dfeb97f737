// Package wire implements the length-prefixed framing used on the raw
// TCP transport: a 4-byte big-endian length followed by exactly that
// many payload bytes. The codec is transport-only and has no knowledge
// of message semantics.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds a single frame's payload. A peer that
// announces a larger frame is violating the protocol and gets its
// connection closed.
const DefaultMaxFrameSize = 1 << 20

const lengthSize = 4

// ErrFrameTooLarge reports a length prefix exceeding the reader's
// maximum frame size.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// WriteFrame writes payload to w as one frame. The prefix and payload
// go out in a single Write so concurrent framers on distinct writers
// never interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, lengthSize+len(payload))
	binary.BigEndian.PutUint32(buf[:lengthSize], uint32(len(payload)))
	copy(buf[lengthSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Reader extracts complete frames from a byte stream, buffering
// partial frames across reads. It yields nothing until a full frame is
// available.
type Reader struct {
	br      *bufio.Reader
	maxSize int
}

// NewReader wraps r. maxSize caps the payload length a single frame
// may announce; values <= 0 fall back to DefaultMaxFrameSize.
func NewReader(r io.Reader, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &Reader{br: bufio.NewReader(r), maxSize: maxSize}
}

// Next blocks until one complete frame is available and returns its
// payload. A stream that ends cleanly on a frame boundary yields
// io.EOF; a stream that ends mid-frame yields io.ErrUnexpectedEOF,
// which callers treat as an abrupt disconnect rather than a malformed
// frame. A length prefix above the maximum yields ErrFrameTooLarge.
func (r *Reader) Next() ([]byte, error) {
	var header [lengthSize]byte
	if _, err := io.ReadFull(r.br, header[:]); err != nil {
		// io.ReadFull already maps a cut-off prefix to ErrUnexpectedEOF.
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if int64(size) > int64(r.maxSize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
