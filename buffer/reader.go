// Package buffer implements the length-prefixed framing of the Postgres
// frontend/backend protocol (C1): reading and writing whole messages over
// a byte stream, plus the raw single-byte SSLRequest handshake reply.
// Nothing above this layer is allowed to read or write the underlying
// stream directly - the higher layers assemble and interpret frames but
// buffer.Reader/buffer.Writer own every byte of I/O.
package buffer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"unsafe"
)

// DefaultBufferSize is the initial read-buffer capacity. PostgreSQL
// messages are bounded in practice (the largest DataRow columns are still
// a handful of megabytes); the buffer grows on demand for anything larger.
const DefaultBufferSize = 1 << 16

// MaxMessageSize bounds a single frame body to guard against a
// desynchronized stream driving an unbounded allocation.
const MaxMessageSize = 1 << 30

// Reader reads length-prefixed backend messages from a stream.
type Reader struct {
	src    *bufio.Reader
	Msg    []byte
	header [4]byte
}

// NewReader constructs a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: bufio.NewReaderSize(src, DefaultBufferSize)}
}

// reset sizes reader.Msg to exactly n, reusing spare backing capacity
// where possible instead of allocating on every message.
func (r *Reader) reset(n int) {
	if cap(r.Msg) >= n {
		r.Msg = r.Msg[:n]
		return
	}

	alloc := n
	if alloc < 4096 {
		alloc = 4096
	}

	r.Msg = make([]byte, n, alloc)
}

// ReadByte reads a single raw byte, used only for the SSLRequest reply
// ('S' or 'N') which precedes any framed message.
func (r *Reader) ReadByte() (byte, error) {
	return r.src.ReadByte()
}

// ReadTag reads the one-byte backend message tag.
func (r *Reader) ReadTag() (byte, error) {
	return r.src.ReadByte()
}

// ReadBody reads a message's int32 length (inclusive of itself) followed
// by length-4 bytes of body, leaving the result in r.Msg. It is the
// counterpart of the frontend Writer.End framing.
func (r *Reader) ReadBody() error {
	if _, err := io.ReadFull(r.src, r.header[:]); err != nil {
		return err
	}

	size := int(binary.BigEndian.Uint32(r.header[:])) - 4
	if size < 0 || size > MaxMessageSize {
		return NewMessageSizeExceeded(size)
	}

	r.reset(size)
	_, err := io.ReadFull(r.src, r.Msg)
	return err
}

// ReadFrame reads a complete tagged frame: the one-byte tag followed by
// its length-prefixed body. This is the steady-state read used once the
// startup handshake has completed.
func (r *Reader) ReadFrame() (tag byte, err error) {
	tag, err = r.ReadTag()
	if err != nil {
		return 0, err
	}

	if err := r.ReadBody(); err != nil {
		return 0, err
	}

	return tag, nil
}

// GetString reads a NUL-terminated string from the front of r.Msg,
// advancing past the terminator.
func (r *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(r.Msg, 0)
	if pos == -1 {
		return "", ErrMissingNulTerminator
	}

	s := r.Msg[:pos]
	r.Msg = r.Msg[pos+1:]
	// Safe: the read buffer backing s is never reused while the returned
	// string is alive, since Reader.reset only grows or replaces Msg.
	return *(*string)(unsafe.Pointer(&s)), nil
}

// GetBytes consumes and returns the next n bytes of r.Msg. n == -1 (the
// wire encoding of SQL NULL) returns a nil slice without error.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n == -1 {
		return nil, nil
	}

	if len(r.Msg) < n {
		return nil, ErrInsufficientData
	}

	v := r.Msg[:n]
	r.Msg = r.Msg[n:]
	return v, nil
}

// Remaining returns whatever is left unread in the current message.
func (r *Reader) Remaining() []byte {
	return r.Msg
}

// GetByte consumes one byte.
func (r *Reader) GetByte() (byte, error) {
	if len(r.Msg) < 1 {
		return 0, ErrInsufficientData
	}

	b := r.Msg[0]
	r.Msg = r.Msg[1:]
	return b, nil
}

// GetUint16 consumes a big-endian uint16.
func (r *Reader) GetUint16() (uint16, error) {
	if len(r.Msg) < 2 {
		return 0, ErrInsufficientData
	}

	v := binary.BigEndian.Uint16(r.Msg[:2])
	r.Msg = r.Msg[2:]
	return v, nil
}

// GetInt16 consumes a big-endian int16.
func (r *Reader) GetInt16() (int16, error) {
	v, err := r.GetUint16()
	return int16(v), err
}

// GetUint32 consumes a big-endian uint32.
func (r *Reader) GetUint32() (uint32, error) {
	if len(r.Msg) < 4 {
		return 0, ErrInsufficientData
	}

	v := binary.BigEndian.Uint32(r.Msg[:4])
	r.Msg = r.Msg[4:]
	return v, nil
}

// GetInt32 consumes a big-endian int32.
func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

// GetUint64 consumes a big-endian uint64.
func (r *Reader) GetUint64() (uint64, error) {
	if len(r.Msg) < 8 {
		return 0, ErrInsufficientData
	}

	v := binary.BigEndian.Uint64(r.Msg[:8])
	r.Msg = r.Msg[8:]
	return v, nil
}

// GetInt64 consumes a big-endian int64.
func (r *Reader) GetInt64() (int64, error) {
	v, err := r.GetUint64()
	return int64(v), err
}
