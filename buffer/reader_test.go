package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Start('Q')
	w.AddCString("select 1")
	require.NoError(t, w.End())

	r := NewReader(&buf)
	tag, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte('Q'), tag)

	s, err := r.GetString()
	require.NoError(t, err)
	assert.Equal(t, "select 1", s)
}

func TestWriterUntaggedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.StartUntagged()
	w.AddInt32(196608)
	w.AddCString("user")
	w.AddCString("postgres")
	w.AddByte(0)
	require.NoError(t, w.EndUntagged())

	// StartupMessage has no tag byte, so the reader just reads a raw
	// length-prefixed body via ReadBody.
	require.NoError(t, readLengthOnlyBody(&buf))
}

// readLengthOnlyBody reads the untagged StartupMessage frame back with
// ReadBody alone, since that frame has no tag byte for ReadFrame.
func readLengthOnlyBody(buf *bytes.Buffer) error {
	r := NewReader(buf)
	return r.ReadBody()
}

func TestReaderGetFixedWidthFields(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Start('D')
	w.AddInt16(1)
	w.AddUint32(42)
	w.AddInt64(-7)
	w.AddBytes([]byte{0xAA, 0xBB})
	require.NoError(t, w.End())

	r := NewReader(&buf)
	_, err := r.ReadFrame()
	require.NoError(t, err)

	i16, err := r.GetInt16()
	require.NoError(t, err)
	assert.EqualValues(t, 1, i16)

	u32, err := r.GetUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 42, u32)

	i64, err := r.GetInt64()
	require.NoError(t, err)
	assert.EqualValues(t, -7, i64)

	b, err := r.GetBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, b)
}

func TestReaderGetBytesNullSentinel(t *testing.T) {
	r := &Reader{Msg: []byte{}}
	b, err := r.GetBytes(-1)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestReaderGetStringMissingTerminator(t *testing.T) {
	r := &Reader{Msg: []byte("no terminator")}
	_, err := r.GetString()
	assert.ErrorIs(t, err, ErrMissingNulTerminator)
}

func TestReaderInsufficientData(t *testing.T) {
	r := &Reader{Msg: []byte{0x01}}
	_, err := r.GetUint32()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestReaderRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	// Length prefix declares a body far larger than MaxMessageSize.
	buf.Write([]byte{0x7F, 0xFF, 0xFF, 0xFF})
	r := NewReader(&buf)

	err := r.ReadBody()
	require.Error(t, err)
	var tooLarge *MessageSizeExceeded
	assert.ErrorAs(t, err, &tooLarge)
}
