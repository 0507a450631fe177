package pgtype

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeArrayHeader(ndim int32, elemOID uint32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(ndim))
	binary.BigEndian.PutUint32(buf[4:8], 0)
	binary.BigEndian.PutUint32(buf[8:12], elemOID)
	return buf
}

func TestArrayDecoderEmptyArrayDecodesWithoutError(t *testing.T) {
	r := NewRegistry()
	codec, ok := r.Lookup(OIDInt4Array)
	require.True(t, ok)

	v, err := codec.Decode(encodeArrayHeader(0, OIDInt4))
	require.NoError(t, err)
	assert.Equal(t, Array{}, v)
}

func TestArrayDecoderOneDimensionalRoundTrip(t *testing.T) {
	r := NewRegistry()
	codec, ok := r.Lookup(OIDInt4Array)
	require.True(t, ok)

	src := Array{Dims: []ArrayDim{{Length: 2, Lower: 1}}, Elements: []any{int32(1), int32(2)}}
	encoded, err := codec.Encode(src)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	arr, ok := decoded.(Array)
	require.True(t, ok)
	assert.Equal(t, []ArrayDim{{Length: 2, Lower: 1}}, arr.Dims)
	assert.Equal(t, []any{int32(1), int32(2)}, arr.Elements)
}

func TestArrayDecoderNullElement(t *testing.T) {
	r := NewRegistry()
	codec, ok := r.Lookup(OIDInt4Array)
	require.True(t, ok)

	header := encodeArrayHeader(1, OIDInt4)
	dim := make([]byte, 8)
	binary.BigEndian.PutUint32(dim[0:4], 1)
	binary.BigEndian.PutUint32(dim[4:8], 1)
	nullElem := make([]byte, 4)
	binary.BigEndian.PutUint32(nullElem, ^uint32(0))

	src := append(append(header, dim...), nullElem...)
	v, err := codec.Decode(src)
	require.NoError(t, err)
	arr := v.(Array)
	require.Len(t, arr.Elements, 1)
	assert.Nil(t, arr.Elements[0])
}
