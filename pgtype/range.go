package pgtype

import (
	"encoding/binary"
	"fmt"
)

// Range flag bits, per §4.2.
const (
	rangeEmpty         = 1 << 0
	rangeLowerInc      = 1 << 1
	rangeUpperInc      = 1 << 2
	rangeLowerInfinite = 1 << 3
	rangeUpperInfinite = 1 << 4
	rangeContainsEmpty = 1 << 7
)

// Range is a decoded range value. Bounds are left as raw subtype bytes:
// the range wire format carries no subtype OID of its own, so decoding
// them into typed values requires the caller to know the subtype (e.g.
// from the column's own type OID minus its "range" suffix) and pass
// them back through the registry's DecodeValue.
type Range struct {
	Empty           bool
	LowerInclusive  bool
	UpperInclusive  bool
	LowerInfinite   bool
	UpperInfinite   bool
	Lower           []byte
	Upper           []byte
}

func decodeRange(src []byte) (any, error) {
	if len(src) < 1 {
		return nil, fmt.Errorf("pgtype: range body empty")
	}

	flags := src[0]
	r := Range{
		Empty:          flags&rangeEmpty != 0,
		LowerInclusive: flags&rangeLowerInc != 0,
		UpperInclusive: flags&rangeUpperInc != 0,
		LowerInfinite:  flags&rangeLowerInfinite != 0,
		UpperInfinite:  flags&rangeUpperInfinite != 0,
	}

	off := 1
	if r.Empty {
		return r, nil
	}

	if !r.LowerInfinite {
		if off+4 > len(src) {
			return nil, fmt.Errorf("pgtype: range lower bound header truncated")
		}
		n := int32(binary.BigEndian.Uint32(src[off : off+4]))
		off += 4
		if off+int(n) > len(src) {
			return nil, fmt.Errorf("pgtype: range lower bound truncated")
		}
		r.Lower = append([]byte(nil), src[off:off+int(n)]...)
		off += int(n)
	}

	if !r.UpperInfinite {
		if off+4 > len(src) {
			return nil, fmt.Errorf("pgtype: range upper bound header truncated")
		}
		n := int32(binary.BigEndian.Uint32(src[off : off+4]))
		off += 4
		if off+int(n) > len(src) {
			return nil, fmt.Errorf("pgtype: range upper bound truncated")
		}
		r.Upper = append([]byte(nil), src[off:off+int(n)]...)
		off += int(n)
	}

	return r, nil
}

func encodeRange(v any) ([]byte, error) {
	r, ok := v.(Range)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as range", v)
	}

	var flags byte
	if r.Empty {
		flags |= rangeEmpty
		return []byte{flags}, nil
	}
	if r.LowerInclusive {
		flags |= rangeLowerInc
	}
	if r.UpperInclusive {
		flags |= rangeUpperInc
	}
	if r.LowerInfinite {
		flags |= rangeLowerInfinite
	}
	if r.UpperInfinite {
		flags |= rangeUpperInfinite
	}

	buf := []byte{flags}

	if !r.LowerInfinite {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(r.Lower)))
		buf = append(buf, lenBuf...)
		buf = append(buf, r.Lower...)
	}
	if !r.UpperInfinite {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(r.Upper)))
		buf = append(buf, lenBuf...)
		buf = append(buf, r.Upper...)
	}

	return buf, nil
}
