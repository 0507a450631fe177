package pgtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Point is a decoded PostgreSQL point.
type Point struct{ X, Y float64 }

type Lseg struct{ A, B Point }

type Path struct {
	Closed bool
	Points []Point
}

type Box struct{ High, Low Point }

type Polygon struct{ Points []Point }

// Line is PostgreSQL's {A, B, C} representation of Ax + By + C = 0.
type Line struct{ A, B, C float64 }

type Circle struct {
	Center Point
	Radius float64
}

func getFloat8(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func putFloat8(b []byte, v float64) {
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
}

func decodePoint(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("pgtype: point body must be 16 bytes, got %d", len(src))
	}
	return Point{X: getFloat8(src[0:8]), Y: getFloat8(src[8:16])}, nil
}

func encodePoint(v any) ([]byte, error) {
	p, ok := v.(Point)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as point", v)
	}
	buf := make([]byte, 16)
	putFloat8(buf[0:8], p.X)
	putFloat8(buf[8:16], p.Y)
	return buf, nil
}

func decodeLseg(src []byte) (any, error) {
	if len(src) != 32 {
		return nil, fmt.Errorf("pgtype: lseg body must be 32 bytes, got %d", len(src))
	}
	a, _ := decodePoint(src[0:16])
	b, _ := decodePoint(src[16:32])
	return Lseg{A: a.(Point), B: b.(Point)}, nil
}

func encodeLseg(v any) ([]byte, error) {
	l, ok := v.(Lseg)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as lseg", v)
	}
	a, _ := encodePoint(l.A)
	b, _ := encodePoint(l.B)
	return append(a, b...), nil
}

func decodeBox(src []byte) (any, error) {
	if len(src) != 32 {
		return nil, fmt.Errorf("pgtype: box body must be 32 bytes, got %d", len(src))
	}
	high, _ := decodePoint(src[0:16])
	low, _ := decodePoint(src[16:32])
	return Box{High: high.(Point), Low: low.(Point)}, nil
}

func encodeBox(v any) ([]byte, error) {
	b, ok := v.(Box)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as box", v)
	}
	high, _ := encodePoint(b.High)
	low, _ := encodePoint(b.Low)
	return append(high, low...), nil
}

func decodePath(src []byte) (any, error) {
	if len(src) < 5 {
		return nil, fmt.Errorf("pgtype: path body too short (%d bytes)", len(src))
	}
	closed := src[0] != 0
	n := int32(binary.BigEndian.Uint32(src[1:5]))
	pts, err := decodePointList(src[5:], n)
	if err != nil {
		return nil, fmt.Errorf("pgtype: decode path: %w", err)
	}
	return Path{Closed: closed, Points: pts}, nil
}

func encodePath(v any) ([]byte, error) {
	p, ok := v.(Path)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as path", v)
	}
	buf := make([]byte, 5+16*len(p.Points))
	if p.Closed {
		buf[0] = 1
	}
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(p.Points)))
	for i, pt := range p.Points {
		enc, _ := encodePoint(pt)
		copy(buf[5+16*i:], enc)
	}
	return buf, nil
}

func decodePolygon(src []byte) (any, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("pgtype: polygon body too short (%d bytes)", len(src))
	}
	n := int32(binary.BigEndian.Uint32(src[0:4]))
	pts, err := decodePointList(src[4:], n)
	if err != nil {
		return nil, fmt.Errorf("pgtype: decode polygon: %w", err)
	}
	return Polygon{Points: pts}, nil
}

func encodePolygon(v any) ([]byte, error) {
	p, ok := v.(Polygon)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as polygon", v)
	}
	buf := make([]byte, 4+16*len(p.Points))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(p.Points)))
	for i, pt := range p.Points {
		enc, _ := encodePoint(pt)
		copy(buf[4+16*i:], enc)
	}
	return buf, nil
}

func decodePointList(src []byte, n int32) ([]Point, error) {
	if len(src) < int(n)*16 {
		return nil, fmt.Errorf("truncated point list, want %d points", n)
	}
	pts := make([]Point, n)
	for i := range pts {
		p, err := decodePoint(src[16*i : 16*i+16])
		if err != nil {
			return nil, err
		}
		pts[i] = p.(Point)
	}
	return pts, nil
}

func decodeLine(src []byte) (any, error) {
	if len(src) != 24 {
		return nil, fmt.Errorf("pgtype: line body must be 24 bytes, got %d", len(src))
	}
	return Line{A: getFloat8(src[0:8]), B: getFloat8(src[8:16]), C: getFloat8(src[16:24])}, nil
}

func encodeLine(v any) ([]byte, error) {
	l, ok := v.(Line)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as line", v)
	}
	buf := make([]byte, 24)
	putFloat8(buf[0:8], l.A)
	putFloat8(buf[8:16], l.B)
	putFloat8(buf[16:24], l.C)
	return buf, nil
}

func decodeCircle(src []byte) (any, error) {
	if len(src) != 24 {
		return nil, fmt.Errorf("pgtype: circle body must be 24 bytes, got %d", len(src))
	}
	center, _ := decodePoint(src[0:16])
	return Circle{Center: center.(Point), Radius: getFloat8(src[16:24])}, nil
}

func encodeCircle(v any) ([]byte, error) {
	c, ok := v.(Circle)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as circle", v)
	}
	center, _ := encodePoint(c.Center)
	buf := append(center, make([]byte, 8)...)
	putFloat8(buf[16:24], c.Radius)
	return buf, nil
}
