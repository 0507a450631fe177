package pgtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// pgEpoch is 2000-01-01, the zero point for every date/time binary
// encoding PostgreSQL uses (§4.2).
var pgEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	pgInt64Min = math.MinInt64
	pgInt64Max = math.MaxInt64
	pgInt32Min = math.MinInt32
	pgInt32Max = math.MaxInt32
)

// Interval is a decoded PostgreSQL interval: the three components are
// kept separate (rather than collapsed into a single Duration) because
// "1 month" is not a fixed number of nanoseconds.
type Interval struct {
	Microseconds int64
	Days         int32
	Months       int32
}

func decodeDate(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("pgtype: date body must be 4 bytes, got %d", len(src))
	}
	days := int32(binary.BigEndian.Uint32(src))
	switch days {
	case pgInt32Max:
		return time.Date(294277, 1, 1, 0, 0, 0, 0, time.UTC), nil // +infinity sentinel
	case pgInt32Min:
		return time.Date(-4713, 1, 1, 0, 0, 0, 0, time.UTC), nil // -infinity sentinel
	}
	return pgEpoch.AddDate(0, 0, int(days)), nil
}

func encodeDate(v any) ([]byte, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as date", v)
	}
	days := int32(t.UTC().Sub(pgEpoch).Hours() / 24)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(days))
	return buf, nil
}

func decodeTimestampCommon(src []byte, local bool) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("pgtype: timestamp body must be 8 bytes, got %d", len(src))
	}
	us := int64(binary.BigEndian.Uint64(src))
	switch us {
	case pgInt64Max:
		return time.Date(294277, 1, 1, 0, 0, 0, 0, time.UTC), nil
	case pgInt64Min:
		return time.Date(-4713, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t := pgEpoch.Add(time.Duration(us) * time.Microsecond)
	if local {
		return t.In(time.Local), nil
	}
	return t, nil
}

func decodeTimestamp(src []byte) (any, error)   { return decodeTimestampCommon(src, true) }
func decodeTimestamptz(src []byte) (any, error) { return decodeTimestampCommon(src, false) }

func encodeTimestampCommon(v any) ([]byte, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as timestamp", v)
	}
	us := t.UTC().Sub(pgEpoch).Microseconds()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(us))
	return buf, nil
}

func encodeTimestamp(v any) ([]byte, error)   { return encodeTimestampCommon(v) }
func encodeTimestamptz(v any) ([]byte, error) { return encodeTimestampCommon(v) }

func decodeTime(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("pgtype: time body must be 8 bytes, got %d", len(src))
	}
	us := int64(binary.BigEndian.Uint64(src))
	return time.Duration(us) * time.Microsecond, nil
}

func encodeTime(v any) ([]byte, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as time", v)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(d.Microseconds()))
	return buf, nil
}

// TimeTZ is a time-of-day with a UTC offset, since Go has no built-in
// type for "time without a date but with a zone".
type TimeTZ struct {
	Time   time.Duration
	Offset int32 // seconds east of UTC
}

func decodeTimetz(src []byte) (any, error) {
	if len(src) != 12 {
		return nil, fmt.Errorf("pgtype: timetz body must be 12 bytes, got %d", len(src))
	}
	us := int64(binary.BigEndian.Uint64(src[0:8]))
	// the wire offset is seconds *west* of UTC, sign-inverted from Go convention.
	offsetWest := int32(binary.BigEndian.Uint32(src[8:12]))
	return TimeTZ{Time: time.Duration(us) * time.Microsecond, Offset: -offsetWest}, nil
}

func encodeTimetz(v any) ([]byte, error) {
	t, ok := v.(TimeTZ)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as timetz", v)
	}
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[0:8], uint64(t.Time.Microseconds()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(-t.Offset))
	return buf, nil
}

func decodeInterval(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("pgtype: interval body must be 16 bytes, got %d", len(src))
	}
	us := int64(binary.BigEndian.Uint64(src[0:8]))
	days := int32(binary.BigEndian.Uint32(src[8:12]))
	months := int32(binary.BigEndian.Uint32(src[12:16]))
	return Interval{Microseconds: us, Days: days, Months: months}, nil
}

func encodeInterval(v any) ([]byte, error) {
	iv, ok := v.(Interval)
	if !ok {
		return nil, fmt.Errorf("pgtype: cannot encode %T as interval", v)
	}
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(iv.Microseconds))
	binary.BigEndian.PutUint32(buf[8:12], uint32(iv.Days))
	binary.BigEndian.PutUint32(buf[12:16], uint32(iv.Months))
	return buf, nil
}
