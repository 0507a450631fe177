package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// The three CopyData submessage tags exchanged on a replication
// connection while COPY BOTH is active (§4.6).
const (
	xLogDataTag         = 'w'
	primaryKeepaliveTag = 'k'
	standbyStatusTag    = 'r'
)

// XLogData is the CopyData submessage carrying one chunk of WAL - for a
// logical slot, the chunk is exactly one pgoutput message body.
type XLogData struct {
	WALStart LSN
	WALEnd   LSN
	SendTime time.Time
	Data     []byte
}

// PrimaryKeepalive is the server's periodic liveness ping. ReplyRequested
// asks the client to send a StandbyStatusUpdate immediately rather than
// waiting for its own timer.
type PrimaryKeepalive struct {
	WALEnd         LSN
	SendTime       time.Time
	ReplyRequested bool
}

// DecodeReplicationMessage classifies a CopyData payload already
// unwrapped by DecodeCopyData into an XLogData or PrimaryKeepalive value.
func DecodeReplicationMessage(payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("protocol: empty replication CopyData payload")
	}

	switch payload[0] {
	case xLogDataTag:
		if len(payload) < 25 {
			return nil, fmt.Errorf("protocol: XLogData payload too short (%d bytes)", len(payload))
		}
		return &XLogData{
			WALStart: LSN(binary.BigEndian.Uint64(payload[1:9])),
			WALEnd:   LSN(binary.BigEndian.Uint64(payload[9:17])),
			SendTime: TimeFromMicros(int64(binary.BigEndian.Uint64(payload[17:25]))),
			Data:     append([]byte(nil), payload[25:]...),
		}, nil

	case primaryKeepaliveTag:
		if len(payload) < 18 {
			return nil, fmt.Errorf("protocol: primary keepalive payload too short (%d bytes)", len(payload))
		}
		return &PrimaryKeepalive{
			WALEnd:         LSN(binary.BigEndian.Uint64(payload[1:9])),
			SendTime:       TimeFromMicros(int64(binary.BigEndian.Uint64(payload[9:17]))),
			ReplyRequested: payload[17] != 0,
		}, nil

	default:
		return nil, fmt.Errorf("protocol: unrecognized replication submessage tag %q", payload[0])
	}
}

// EncodeStandbyStatusUpdate builds the CopyData payload for a
// StandbyStatusUpdate ('r') submessage: the flush confirmation the
// subscriber periodically sends back to let the server advance the
// slot's restart LSN (§4.6, §6.3).
func EncodeStandbyStatusUpdate(written, flushed, applied LSN, clientTime time.Time, replyRequested bool) []byte {
	buf := make([]byte, 34)
	buf[0] = standbyStatusTag
	binary.BigEndian.PutUint64(buf[1:9], uint64(written))
	binary.BigEndian.PutUint64(buf[9:17], uint64(flushed))
	binary.BigEndian.PutUint64(buf[17:25], uint64(applied))
	binary.BigEndian.PutUint64(buf[25:33], uint64(MicrosSinceEpoch(clientTime)))
	if replyRequested {
		buf[33] = 1
	}
	return buf
}
