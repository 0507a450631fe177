package replication

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"

	"github.com/relaywire/pgreplicate/protocol"
)

const (
	defaultAckInterval   = 10 * time.Second
	defaultQueueSize     = 256
	defaultProtoVersion  = 2
	defaultSubmitTimeout = 0 // wait indefinitely, subject to ctx cancellation
)

// Options configures Connect. Addr/User/Password/Database/SlotName and
// at least one publication name are required; everything else has a
// spec-mandated default.
type Options struct {
	Addr     string
	User     string
	Password string
	Database string

	SlotName         string
	PublicationNames []string

	// ProtocolVersion selects the pgoutput wire version (1-4); 2+ is
	// required for Streaming other than StreamingOff, 4 for
	// StreamAbort's abort_lsn/tx_timestamp trailer.
	ProtocolVersion int
	Streaming       protocol.StreamingMode
	Messages        bool

	// StartLSN is where replication resumes; the zero value asks the
	// server to resume from the slot's own confirmed_flush_lsn.
	StartLSN protocol.LSN

	// AckInterval is how often the LSN flusher sends a
	// StandbyStatusUpdate; default 10s (§4.6).
	AckInterval time.Duration

	// QueueSize bounds the handler executor's work queue; default 256
	// (§4.7).
	QueueSize int

	// SubmitTimeout bounds how long the reader blocks trying to enqueue
	// a message for a full handler queue before failing with
	// Unavailable; 0 waits indefinitely (subject to ctx cancellation).
	SubmitTimeout time.Duration

	// KeyFunc renames a column's row-map/key-attr-name entry given its
	// table's OID and wire name (§3, §6.4's `key_fn`); nil uses
	// defaultKeyFunc, which returns the wire name unchanged. It never
	// changes which columns are keys - that is always the replica
	// identity's own attribute flags.
	KeyFunc KeyFunc

	TLSConfig *tls.Config
	Logger    *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ProtocolVersion == 0 {
		o.ProtocolVersion = defaultProtoVersion
	}
	if o.Streaming == "" {
		o.Streaming = protocol.StreamingOff
	}
	if o.AckInterval <= 0 {
		o.AckInterval = defaultAckInterval
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
