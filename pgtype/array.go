package pgtype

import (
	"encoding/binary"
	"fmt"
)

// ArrayDim is one dimension of a decoded array (§4.2).
type ArrayDim struct {
	Length int32
	Lower  int32
}

// Array is a decoded PostgreSQL array of any dimensionality. Elements is
// flattened in row-major order; a nil element means SQL NULL.
type Array struct {
	Dims     []ArrayDim
	Elements []any
}

// newArrayDecoder builds a Decoder for an array whose element type is
// decoded by elem. It is used to register each built-in scalar's paired
// array OID (e.g. int4[] alongside int4).
func newArrayDecoder(elem Decoder) Decoder {
	return func(src []byte) (any, error) {
		if len(src) < 12 {
			return nil, fmt.Errorf("pgtype: array body too short (%d bytes)", len(src))
		}

		ndim := int32(binary.BigEndian.Uint32(src[0:4]))
		// hasNulls at src[4:8] is informational only; -1 length markers
		// are authoritative regardless of its value.
		// elementOID at src[8:12] is redundant with the registered pairing.
		off := 12

		if ndim == 0 {
			return Array{}, nil
		}

		dims := make([]ArrayDim, ndim)
		total := int32(1)
		for i := range dims {
			if off+8 > len(src) {
				return nil, fmt.Errorf("pgtype: array dimension header truncated")
			}
			dims[i].Length = int32(binary.BigEndian.Uint32(src[off : off+4]))
			dims[i].Lower = int32(binary.BigEndian.Uint32(src[off+4 : off+8]))
			off += 8
			total *= dims[i].Length
		}

		elements := make([]any, total)
		for i := range elements {
			if off+4 > len(src) {
				return nil, fmt.Errorf("pgtype: array element header truncated")
			}
			length := int32(binary.BigEndian.Uint32(src[off : off+4]))
			off += 4

			if length < 0 {
				continue // NULL element
			}

			if off+int(length) > len(src) {
				return nil, fmt.Errorf("pgtype: array element body truncated")
			}

			v, err := elem(src[off : off+int(length)])
			if err != nil {
				return nil, fmt.Errorf("pgtype: array element %d: %w", i, err)
			}
			elements[i] = v
			off += int(length)
		}

		return Array{Dims: dims, Elements: elements}, nil
	}
}

// newArrayEncoder builds an Encoder for a one-dimensional array whose
// element type is encoded by elem and identified on the wire by elemOID.
func newArrayEncoder(elemOID uint32, elem Encoder) Encoder {
	return func(v any) ([]byte, error) {
		arr, ok := v.(Array)
		if !ok {
			return nil, fmt.Errorf("pgtype: cannot encode %T as array", v)
		}
		if len(arr.Dims) != 1 {
			return nil, fmt.Errorf("pgtype: only one-dimensional array encoding is supported, got %d dims", len(arr.Dims))
		}

		hasNulls := int32(0)
		encoded := make([][]byte, len(arr.Elements))
		size := 20
		for i, el := range arr.Elements {
			if el == nil {
				hasNulls = 1
				size += 4
				continue
			}
			b, err := elem(el)
			if err != nil {
				return nil, fmt.Errorf("pgtype: array element %d: %w", i, err)
			}
			encoded[i] = b
			size += 4 + len(b)
		}

		buf := make([]byte, size)
		binary.BigEndian.PutUint32(buf[0:4], 1)
		binary.BigEndian.PutUint32(buf[4:8], uint32(hasNulls))
		binary.BigEndian.PutUint32(buf[8:12], elemOID)
		binary.BigEndian.PutUint32(buf[12:16], uint32(arr.Dims[0].Length))
		binary.BigEndian.PutUint32(buf[16:20], uint32(arr.Dims[0].Lower))

		off := 20
		for _, b := range encoded {
			if b == nil {
				binary.BigEndian.PutUint32(buf[off:off+4], ^uint32(0))
				off += 4
				continue
			}
			binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(b)))
			off += 4
			copy(buf[off:], b)
			off += len(b)
		}

		return buf, nil
	}
}
