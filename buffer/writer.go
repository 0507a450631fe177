package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Writer builds and flushes length-prefixed frontend messages. Start/End
// bracket a single message; the intervening Add* calls append to an
// internal frame buffer whose length prefix is patched in by End once the
// full body is known, mirroring the two-pass framing every pgwire
// implementation uses to avoid buffering the whole connection's output.
type Writer struct {
	dst   io.Writer
	frame bytes.Buffer
	err   error
}

// NewWriter constructs a Writer over dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// Start begins a new message with the given tag.
func (w *Writer) Start(tag byte) {
	w.Reset()
	w.frame.WriteByte(tag)
	w.frame.Write([]byte{0, 0, 0, 0}) // length placeholder, patched in End
}

// StartUntagged begins a new message with no leading tag byte, used only
// for StartupMessage, SSLRequest and CancelRequest, which precede the
// tagged framing the rest of the protocol uses.
func (w *Writer) StartUntagged() {
	w.Reset()
	w.frame.Write([]byte{0, 0, 0, 0}) // length placeholder, patched in EndUntagged
}

// EndUntagged patches in the message length (which, for these messages,
// includes itself but no tag byte) and flushes the frame.
func (w *Writer) EndUntagged() error {
	defer w.Reset()

	if w.err != nil {
		return w.err
	}

	b := w.frame.Bytes()
	binary.BigEndian.PutUint32(b[0:4], uint32(len(b)))
	_, err := w.dst.Write(b)
	return err
}

// Reset discards any partially written frame.
func (w *Writer) Reset() {
	w.frame.Reset()
	w.err = nil
}

// AddByte appends a single byte.
func (w *Writer) AddByte(b byte) {
	if w.err != nil {
		return
	}

	w.err = w.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16.
func (w *Writer) AddInt16(v int16) {
	w.AddUint16(uint16(v))
}

// AddUint16 appends a big-endian uint16.
func (w *Writer) AddUint16(v uint16) {
	if w.err != nil {
		return
	}

	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, w.err = w.frame.Write(buf[:])
}

// AddInt32 appends a big-endian int32.
func (w *Writer) AddInt32(v int32) {
	w.AddUint32(uint32(v))
}

// AddUint32 appends a big-endian uint32.
func (w *Writer) AddUint32(v uint32) {
	if w.err != nil {
		return
	}

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, w.err = w.frame.Write(buf[:])
}

// AddInt64 appends a big-endian int64.
func (w *Writer) AddInt64(v int64) {
	w.AddUint64(uint64(v))
}

// AddUint64 appends a big-endian uint64.
func (w *Writer) AddUint64(v uint64) {
	if w.err != nil {
		return
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, w.err = w.frame.Write(buf[:])
}

// AddBytes appends raw bytes.
func (w *Writer) AddBytes(b []byte) {
	if w.err != nil {
		return
	}

	_, w.err = w.frame.Write(b)
}

// AddString appends raw string bytes without a terminator.
func (w *Writer) AddString(s string) {
	if w.err != nil {
		return
	}

	_, w.err = w.frame.WriteString(s)
}

// AddCString appends a NUL-terminated string.
func (w *Writer) AddCString(s string) {
	w.AddString(s)
	w.AddByte(0)
}

// Error returns any error recorded while building the current frame.
func (w *Writer) Error() error {
	return w.err
}

// End patches in the message length and flushes the frame to the
// underlying writer in a single Write call, satisfying the "writes are
// flushed before returning" contract of §4.1.
func (w *Writer) End() error {
	defer w.Reset()

	if w.err != nil {
		return w.err
	}

	b := w.frame.Bytes()
	binary.BigEndian.PutUint32(b[1:5], uint32(len(b)-1))
	_, err := w.dst.Write(b)
	return err
}

// WriteRaw writes b directly to the underlying stream, unframed - used
// only for the SSLRequest/StartupMessage exchange that precedes tagged
// framing.
func (w *Writer) WriteRaw(b []byte) error {
	_, err := w.dst.Write(b)
	return err
}
