package pgtype

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/google/uuid"
)

func decodeBool(src []byte) (any, error) {
	if len(src) != 1 {
		return nil, fmt.Errorf("pgtype: bool body must be 1 byte, got %d", len(src))
	}
	return src[0] != 0, nil
}

func encodeBool(v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as bool", v)
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func decodeBytea(src []byte) (any, error) {
	return append([]byte(nil), src...), nil
}

func encodeBytea(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as bytea", v)
	}
	return b, nil
}

func decodeChar(src []byte) (any, error) {
	if len(src) != 1 {
		return nil, fmt.Errorf("pgtype: \"char\" body must be 1 byte, got %d", len(src))
	}
	return src[0], nil
}

func encodeChar(v any) ([]byte, error) {
	switch c := v.(type) {
	case byte:
		return []byte{c}, nil
	case rune:
		return []byte{byte(c)}, nil
	default:
		return nil, fmt.Errorf("pgtype: cannot encode %T as \"char\"", v)
	}
}

func decodeText(src []byte) (any, error) {
	return string(src), nil
}

func encodeText(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as text", v)
	}
	return []byte(s), nil
}

func decodeInt2(src []byte) (any, error) {
	if len(src) != 2 {
		return nil, fmt.Errorf("pgtype: int2 body must be 2 bytes, got %d", len(src))
	}
	return int16(binary.BigEndian.Uint16(src)), nil
}

func encodeInt2(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(n))
	return buf, nil
}

func decodeInt4(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("pgtype: int4 body must be 4 bytes, got %d", len(src))
	}
	return int32(binary.BigEndian.Uint32(src)), nil
}

func encodeInt4(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n))
	return buf, nil
}

func decodeInt8(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("pgtype: int8 body must be 8 bytes, got %d", len(src))
	}
	return int64(binary.BigEndian.Uint64(src)), nil
}

func encodeInt8(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("pgtype: cannot encode %T as an integer type", v)
	}
}

// decodeOID decodes oid and xid, which share int4's representation.
func decodeOID(src []byte) (any, error) {
	v, err := decodeInt4(src)
	if err != nil {
		return nil, err
	}
	return uint32(v.(int32)), nil
}

func encodeOID(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n))
	return buf, nil
}

func decodeFloat4(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("pgtype: float4 body must be 4 bytes, got %d", len(src))
	}
	return math.Float32frombits(binary.BigEndian.Uint32(src)), nil
}

func encodeFloat4(v any) ([]byte, error) {
	f, ok := v.(float32)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as float4", v)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(f))
	return buf, nil
}

func decodeFloat8(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("pgtype: float8 body must be 8 bytes, got %d", len(src))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(src)), nil
}

func encodeFloat8(v any) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as float8", v)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf, nil
}

// Money is stored as int64 cents, per §4.2.
type Money int64

func decodeMoney(src []byte) (any, error) {
	v, err := decodeInt8(src)
	if err != nil {
		return nil, err
	}
	return Money(v.(int64)), nil
}

func encodeMoney(v any) ([]byte, error) {
	m, ok := v.(Money)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as money", v)
	}
	return encodeInt8(int64(m))
}

func decodeUUID(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("pgtype: uuid body must be 16 bytes, got %d", len(src))
	}
	var u uuid.UUID
	copy(u[:], src)
	return u, nil
}

func encodeUUID(v any) ([]byte, error) {
	u, ok := v.(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as uuid", v)
	}
	return u[:], nil
}

// Inet is a decoded inet/cidr value: address plus prefix length. The
// wire family byte and "is_cidr" byte are not surfaced as fields.
type Inet struct {
	Addr   net.IP
	Prefix int
}

const (
	pgAFInet  = 2
	pgAFInet6 = 3
)

func decodeInet(src []byte) (any, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("pgtype: inet body too short (%d bytes)", len(src))
	}
	family := src[0]
	bits := src[1]
	// src[2] is is_cidr, unused on decode
	nb := int(src[3])
	addr := src[4 : 4+nb]

	ip := net.IP(append([]byte(nil), addr...))
	if family != pgAFInet && family != pgAFInet6 {
		return nil, fmt.Errorf("pgtype: unsupported inet address family %d", family)
	}

	return Inet{Addr: ip, Prefix: int(bits)}, nil
}

func encodeInet(v any) ([]byte, error) {
	in, ok := v.(Inet)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as inet", v)
	}

	family := byte(pgAFInet)
	addr := in.Addr.To4()
	if addr == nil {
		family = pgAFInet6
		addr = in.Addr.To16()
	}

	buf := make([]byte, 4+len(addr))
	buf[0] = family
	buf[1] = byte(in.Prefix)
	buf[2] = 0
	buf[3] = byte(len(addr))
	copy(buf[4:], addr)
	return buf, nil
}

// jsonb wire format is a version byte (always 1) followed by the JSON text.
func decodeJSONB(src []byte) (any, error) {
	if len(src) < 1 {
		return nil, fmt.Errorf("pgtype: jsonb body empty")
	}
	if src[0] != 1 {
		return nil, fmt.Errorf("pgtype: unsupported jsonb version %d", src[0])
	}
	return append([]byte(nil), src[1:]...), nil
}

func encodeJSONB(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("pgtype: cannot encode %T as jsonb", v)
		}
		b = []byte(s)
	}
	buf := make([]byte, 1+len(b))
	buf[0] = 1
	copy(buf[1:], b)
	return buf, nil
}

func decodeJSON(src []byte) (any, error) {
	return append([]byte(nil), src...), nil
}

func encodeJSON(v any) ([]byte, error) {
	return encodeText(v)
}

// PgLSN mirrors protocol.LSN's segment/offset split without importing
// the protocol package, since pgtype must not depend on it.
type PgLSN uint64

func decodePgLSN(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("pgtype: pg_lsn body must be 8 bytes, got %d", len(src))
	}
	hi := binary.BigEndian.Uint32(src[0:4])
	lo := binary.BigEndian.Uint32(src[4:8])
	return PgLSN(uint64(hi)<<32 | uint64(lo)), nil
}

func encodePgLSN(v any) ([]byte, error) {
	lsn, ok := v.(PgLSN)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as pg_lsn", v)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(lsn>>32))
	binary.BigEndian.PutUint32(buf[4:8], uint32(lsn))
	return buf, nil
}

// tsvector's binary form is a lexeme count followed by, per lexeme, a
// NUL-terminated word and a position list; it decodes to a single string
// of the lexemes joined by spaces, with the position lists dropped.
func decodeTSVector(src []byte) (any, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("pgtype: tsvector body too short")
	}
	n := binary.BigEndian.Uint32(src[0:4])
	rest := src[4:]

	lexemes := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return nil, fmt.Errorf("pgtype: tsvector lexeme missing NUL terminator")
		}
		lexemes = append(lexemes, string(rest[:idx]))
		rest = rest[idx+1:]

		if len(rest) < 2 {
			return nil, fmt.Errorf("pgtype: tsvector truncated position count")
		}
		npos := binary.BigEndian.Uint16(rest[0:2])
		rest = rest[2:]
		rest = rest[int(npos)*2:]
	}

	return strings.Join(lexemes, " "), nil
}
