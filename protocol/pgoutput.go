package protocol

import (
	"fmt"
	"time"
)

// pgEpoch is the zero point PostgreSQL uses for wire-encoded timestamps
// and LSN system-clock fields: 2000-01-01 00:00:00 UTC.
var pgEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// MicrosSinceEpoch converts a Go time to the microseconds-since-pgEpoch
// form used by StandbyStatusUpdate and pgoutput Begin/Commit timestamps.
func MicrosSinceEpoch(t time.Time) int64 {
	return t.Sub(pgEpoch).Microseconds()
}

// TimeFromMicros is the inverse of MicrosSinceEpoch.
func TimeFromMicros(us int64) time.Time {
	return pgEpoch.Add(time.Duration(us) * time.Microsecond)
}

// StreamingMode selects how the subscriber asked the server to deliver
// in-progress transactions (§6.4).
type StreamingMode string

const (
	StreamingOff      StreamingMode = "off"
	StreamingOn       StreamingMode = "on"
	StreamingParallel StreamingMode = "parallel"
)

// DecodeContext carries the read-only state pgoutput decoding needs to
// know whether an XID prefix precedes a sub-message and whether a
// StreamAbort trails abort_lsn/tx_timestamp (§4.3).
type DecodeContext struct {
	InStream        bool
	Streaming       StreamingMode
	ProtocolVersion int
}

// ReplicaIdentity is the table's REPLICA IDENTITY setting as carried in a
// Relation message (§4.6).
type ReplicaIdentity byte

const (
	ReplicaIdentityDefault ReplicaIdentity = 'd'
	ReplicaIdentityNothing ReplicaIdentity = 'n'
	ReplicaIdentityFull    ReplicaIdentity = 'f'
	ReplicaIdentityIndex   ReplicaIdentity = 'i'
)

// WALMessage is any decoded pgoutput sub-message.
type WALMessage interface {
	walMessage()
}

type BeginMessage struct {
	FinalLSN  LSN
	Timestamp time.Time
	XID       uint32
}

type CommitMessage struct {
	Flags             uint8
	CommitLSN         LSN
	TransactionEndLSN LSN
	Timestamp         time.Time
}

type OriginMessage struct {
	CommitLSN LSN
	Name      string
}

type RelationMessage struct {
	RelationID      uint32
	Namespace       string
	RelationName    string
	ReplicaIdentity ReplicaIdentity
	Columns         []Attribute
}

type TypeMessage struct {
	DataType  uint32
	Namespace string
	Name      string
}

// TupleColumn is one column of a TupleData: Kind is 'n' (NULL), 'u'
// (unchanged TOASTed value), 't' (text) or 'b' (binary); Data is empty
// for 'n' and 'u'.
type TupleColumn struct {
	Kind byte
	Data []byte
}

type TupleData struct {
	Columns []TupleColumn
}

type InsertMessage struct {
	RelationID uint32
	Tuple      TupleData
	XID        uint32 // 0 if not in a streamed transaction
}

type UpdateMessage struct {
	RelationID uint32
	// OldTupleKind is 0 (absent), 'K' (key columns only) or 'O' (full old
	// row, when REPLICA IDENTITY FULL).
	OldTupleKind byte
	OldTuple     *TupleData
	NewTuple     TupleData
	XID          uint32
}

type DeleteMessage struct {
	RelationID uint32
	// OldTupleKind is 'K' or 'O', per UpdateMessage.
	OldTupleKind byte
	OldTuple     TupleData
	XID          uint32
}

type TruncateMessage struct {
	RelationIDs     []uint32
	Cascade         bool
	RestartIdentity bool
	XID             uint32
}

type LogicalMessage struct {
	Transactional bool
	LSN           LSN
	Prefix        string
	Content       []byte
	XID           uint32
}

type StreamStartMessage struct {
	XID          uint32
	FirstSegment bool
}

type StreamStopMessage struct{}

type StreamCommitMessage struct {
	XID               uint32
	Flags             uint8
	CommitLSN         LSN
	TransactionEndLSN LSN
	Timestamp         time.Time
}

type StreamAbortMessage struct {
	XID          uint32
	SubXID       uint32
	AbortLSN     LSN       // only set when ProtocolVersion==4 && Streaming==parallel
	Timestamp    time.Time // only set when ProtocolVersion==4 && Streaming==parallel
	HasAbortInfo bool
}

func (BeginMessage) walMessage()        {}
func (CommitMessage) walMessage()       {}
func (OriginMessage) walMessage()       {}
func (RelationMessage) walMessage()     {}
func (TypeMessage) walMessage()         {}
func (InsertMessage) walMessage()       {}
func (UpdateMessage) walMessage()       {}
func (DeleteMessage) walMessage()       {}
func (TruncateMessage) walMessage()     {}
func (LogicalMessage) walMessage()      {}
func (StreamStartMessage) walMessage()  {}
func (StreamStopMessage) walMessage()   {}
func (StreamCommitMessage) walMessage() {}
func (StreamAbortMessage) walMessage()  {}

// DecodePgoutput parses the section of a WalData message that carries the
// pgoutput plugin output (§4.6, §6.2). data must not include the leading
// XLogData 'w' byte or the LSN/timestamp header - callers pass exactly
// the "section" bytes of §3's Replication state.
func DecodePgoutput(data []byte, ctx DecodeContext) (WALMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("protocol: empty pgoutput message")
	}

	r := &pgoutputReader{buf: data[1:]}
	tag := data[0]

	switch tag {
	case 'B':
		return decodeBegin(r)
	case 'C':
		return decodeCommit(r)
	case 'O':
		return decodeOrigin(r)
	case 'R':
		return decodeRelation(r)
	case 'Y':
		return decodeType(r)
	case 'I':
		return decodeInsert(r, ctx)
	case 'U':
		return decodeUpdate(r, ctx)
	case 'D':
		return decodeDelete(r, ctx)
	case 'T':
		return decodeTruncate(r, ctx)
	case 'M':
		return decodeLogicalMessage(r, ctx)
	case 'S':
		return decodeStreamStart(r)
	case 'E':
		return StreamStopMessage{}, nil
	case 'c':
		return decodeStreamCommit(r)
	case 'A':
		return decodeStreamAbort(r, ctx)
	default:
		return nil, fmt.Errorf("protocol: unsupported pgoutput message tag %q", tag)
	}
}

// pgoutputReader is a tiny cursor over an in-memory pgoutput sub-message,
// distinct from buffer.Reader because pgoutput messages arrive already
// fully buffered inside a CopyData/XLogData frame.
type pgoutputReader struct {
	buf []byte
}

func (r *pgoutputReader) byte() (byte, error) {
	if len(r.buf) < 1 {
		return 0, fmt.Errorf("protocol: pgoutput message truncated")
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

func (r *pgoutputReader) uint16() (uint16, error) {
	if len(r.buf) < 2 {
		return 0, fmt.Errorf("protocol: pgoutput message truncated")
	}
	v := uint16(r.buf[0])<<8 | uint16(r.buf[1])
	r.buf = r.buf[2:]
	return v, nil
}

func (r *pgoutputReader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

func (r *pgoutputReader) uint32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("protocol: pgoutput message truncated")
	}
	v := uint32(r.buf[0])<<24 | uint32(r.buf[1])<<16 | uint32(r.buf[2])<<8 | uint32(r.buf[3])
	r.buf = r.buf[4:]
	return v, nil
}

func (r *pgoutputReader) uint64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, fmt.Errorf("protocol: pgoutput message truncated")
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(r.buf[i])
	}
	r.buf = r.buf[8:]
	return v, nil
}

func (r *pgoutputReader) int64() (int64, error) {
	v, err := r.uint64()
	return int64(v), err
}

func (r *pgoutputReader) cstring() (string, error) {
	for i, b := range r.buf {
		if b == 0 {
			s := string(r.buf[:i])
			r.buf = r.buf[i+1:]
			return s, nil
		}
	}
	return "", fmt.Errorf("protocol: pgoutput message missing NUL terminator")
}

func (r *pgoutputReader) bytes(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, fmt.Errorf("protocol: pgoutput message truncated")
	}
	v := r.buf[:n]
	r.buf = r.buf[n:]
	return v, nil
}

func decodeBegin(r *pgoutputReader) (WALMessage, error) {
	lsn, err := r.uint64()
	if err != nil {
		return nil, err
	}
	ts, err := r.int64()
	if err != nil {
		return nil, err
	}
	xid, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return BeginMessage{FinalLSN: LSN(lsn), Timestamp: TimeFromMicros(ts), XID: xid}, nil
}

func decodeCommit(r *pgoutputReader) (WALMessage, error) {
	flags, err := r.byte()
	if err != nil {
		return nil, err
	}
	commitLSN, err := r.uint64()
	if err != nil {
		return nil, err
	}
	endLSN, err := r.uint64()
	if err != nil {
		return nil, err
	}
	ts, err := r.int64()
	if err != nil {
		return nil, err
	}
	return CommitMessage{Flags: flags, CommitLSN: LSN(commitLSN), TransactionEndLSN: LSN(endLSN), Timestamp: TimeFromMicros(ts)}, nil
}

func decodeOrigin(r *pgoutputReader) (WALMessage, error) {
	lsn, err := r.uint64()
	if err != nil {
		return nil, err
	}
	name, err := r.cstring()
	if err != nil {
		return nil, err
	}
	return OriginMessage{CommitLSN: LSN(lsn), Name: name}, nil
}

func decodeRelation(r *pgoutputReader) (WALMessage, error) {
	id, err := r.uint32()
	if err != nil {
		return nil, err
	}
	ns, err := r.cstring()
	if err != nil {
		return nil, err
	}
	name, err := r.cstring()
	if err != nil {
		return nil, err
	}
	identity, err := r.byte()
	if err != nil {
		return nil, err
	}
	n, err := r.uint16()
	if err != nil {
		return nil, err
	}

	cols := make([]Attribute, n)
	for i := range cols {
		flags, err := r.byte()
		if err != nil {
			return nil, err
		}
		colName, err := r.cstring()
		if err != nil {
			return nil, err
		}
		typeOID, err := r.uint32()
		if err != nil {
			return nil, err
		}
		typeMod, err := r.int32()
		if err != nil {
			return nil, err
		}
		cols[i] = Attribute{
			Name:         colName,
			TableOID:     id,
			Number:       int16(i + 1),
			TypeOID:      typeOID,
			TypeModifier: typeMod,
			Flags:        AttributeFlags(flags),
		}
	}

	return RelationMessage{RelationID: id, Namespace: ns, RelationName: name, ReplicaIdentity: ReplicaIdentity(identity), Columns: cols}, nil
}

func decodeType(r *pgoutputReader) (WALMessage, error) {
	oid, err := r.uint32()
	if err != nil {
		return nil, err
	}
	ns, err := r.cstring()
	if err != nil {
		return nil, err
	}
	name, err := r.cstring()
	if err != nil {
		return nil, err
	}
	return TypeMessage{DataType: oid, Namespace: ns, Name: name}, nil
}

func decodeTupleData(r *pgoutputReader) (TupleData, error) {
	n, err := r.uint16()
	if err != nil {
		return TupleData{}, err
	}

	cols := make([]TupleColumn, n)
	for i := range cols {
		kind, err := r.byte()
		if err != nil {
			return TupleData{}, err
		}

		switch kind {
		case 'n', 'u':
			cols[i] = TupleColumn{Kind: kind}
		case 't', 'b':
			length, err := r.int32()
			if err != nil {
				return TupleData{}, err
			}
			data, err := r.bytes(int(length))
			if err != nil {
				return TupleData{}, err
			}
			cols[i] = TupleColumn{Kind: kind, Data: append([]byte(nil), data...)}
		default:
			return TupleData{}, fmt.Errorf("protocol: unsupported tuple column kind %q", kind)
		}
	}

	return TupleData{Columns: cols}, nil
}

func maybeXID(r *pgoutputReader, ctx DecodeContext) (uint32, error) {
	if !ctx.InStream {
		return 0, nil
	}
	return r.uint32()
}

func decodeInsert(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := maybeXID(r, ctx)
	if err != nil {
		return nil, err
	}
	relID, err := r.uint32()
	if err != nil {
		return nil, err
	}
	kind, err := r.byte() // 'N' marker, always present
	if err != nil {
		return nil, err
	}
	if kind != 'N' {
		return nil, fmt.Errorf("protocol: expected 'N' tuple marker in Insert, got %q", kind)
	}
	tuple, err := decodeTupleData(r)
	if err != nil {
		return nil, err
	}
	return InsertMessage{RelationID: relID, Tuple: tuple, XID: xid}, nil
}

func decodeUpdate(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := maybeXID(r, ctx)
	if err != nil {
		return nil, err
	}
	relID, err := r.uint32()
	if err != nil {
		return nil, err
	}

	msg := UpdateMessage{RelationID: relID, XID: xid}

	kind, err := r.byte()
	if err != nil {
		return nil, err
	}

	if kind == 'K' || kind == 'O' {
		old, err := decodeTupleData(r)
		if err != nil {
			return nil, err
		}
		msg.OldTupleKind = kind
		msg.OldTuple = &old

		kind, err = r.byte()
		if err != nil {
			return nil, err
		}
	}

	if kind != 'N' {
		return nil, fmt.Errorf("protocol: expected 'N' tuple marker in Update, got %q", kind)
	}

	newTuple, err := decodeTupleData(r)
	if err != nil {
		return nil, err
	}
	msg.NewTuple = newTuple

	return msg, nil
}

func decodeDelete(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := maybeXID(r, ctx)
	if err != nil {
		return nil, err
	}
	relID, err := r.uint32()
	if err != nil {
		return nil, err
	}
	kind, err := r.byte()
	if err != nil {
		return nil, err
	}
	if kind != 'K' && kind != 'O' {
		return nil, fmt.Errorf("protocol: expected 'K' or 'O' tuple marker in Delete, got %q", kind)
	}
	old, err := decodeTupleData(r)
	if err != nil {
		return nil, err
	}
	return DeleteMessage{RelationID: relID, OldTupleKind: kind, OldTuple: old, XID: xid}, nil
}

func decodeTruncate(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := maybeXID(r, ctx)
	if err != nil {
		return nil, err
	}
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	flags, err := r.byte()
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, n)
	for i := range ids {
		ids[i], err = r.uint32()
		if err != nil {
			return nil, err
		}
	}

	return TruncateMessage{
		RelationIDs:     ids,
		Cascade:         flags&1 != 0,
		RestartIdentity: flags&2 != 0,
		XID:             xid,
	}, nil
}

func decodeLogicalMessage(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := maybeXID(r, ctx)
	if err != nil {
		return nil, err
	}
	flags, err := r.byte()
	if err != nil {
		return nil, err
	}
	lsn, err := r.uint64()
	if err != nil {
		return nil, err
	}
	prefix, err := r.cstring()
	if err != nil {
		return nil, err
	}
	length, err := r.uint32()
	if err != nil {
		return nil, err
	}
	content, err := r.bytes(int(length))
	if err != nil {
		return nil, err
	}

	return LogicalMessage{
		Transactional: flags&1 != 0,
		LSN:           LSN(lsn),
		Prefix:        prefix,
		Content:       append([]byte(nil), content...),
		XID:           xid,
	}, nil
}

func decodeStreamStart(r *pgoutputReader) (WALMessage, error) {
	xid, err := r.uint32()
	if err != nil {
		return nil, err
	}
	first, err := r.byte()
	if err != nil {
		return nil, err
	}
	return StreamStartMessage{XID: xid, FirstSegment: first != 0}, nil
}

func decodeStreamCommit(r *pgoutputReader) (WALMessage, error) {
	xid, err := r.uint32()
	if err != nil {
		return nil, err
	}
	flags, err := r.byte()
	if err != nil {
		return nil, err
	}
	commitLSN, err := r.uint64()
	if err != nil {
		return nil, err
	}
	endLSN, err := r.uint64()
	if err != nil {
		return nil, err
	}
	ts, err := r.int64()
	if err != nil {
		return nil, err
	}
	return StreamCommitMessage{
		XID:               xid,
		Flags:             flags,
		CommitLSN:         LSN(commitLSN),
		TransactionEndLSN: LSN(endLSN),
		Timestamp:         TimeFromMicros(ts),
	}, nil
}

// decodeStreamAbort implements the §9 open-question resolution: abort_lsn
// and tx_timestamp are present only when ProtocolVersion==4 AND
// Streaming==parallel; every other combination omits them.
func decodeStreamAbort(r *pgoutputReader, ctx DecodeContext) (WALMessage, error) {
	xid, err := r.uint32()
	if err != nil {
		return nil, err
	}
	subXID, err := r.uint32()
	if err != nil {
		return nil, err
	}

	msg := StreamAbortMessage{XID: xid, SubXID: subXID}

	if ctx.ProtocolVersion == 4 && ctx.Streaming == StreamingParallel {
		abortLSN, err := r.uint64()
		if err != nil {
			return nil, err
		}
		ts, err := r.int64()
		if err != nil {
			return nil, err
		}
		msg.AbortLSN = LSN(abortLSN)
		msg.Timestamp = TimeFromMicros(ts)
		msg.HasAbortInfo = true
	}

	return msg, nil
}
