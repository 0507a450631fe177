package replication

import (
	"github.com/relaywire/pgreplicate/protocol"
)

// EventKind names which pgoutput message an Event was derived from,
// mirroring the tag set of §4.6.
type EventKind string

const (
	EventBegin        EventKind = "begin"
	EventCommit       EventKind = "commit"
	EventOrigin       EventKind = "origin"
	EventRelation     EventKind = "relation"
	EventType         EventKind = "type"
	EventInsert       EventKind = "insert"
	EventUpdate       EventKind = "update"
	EventDelete       EventKind = "delete"
	EventTruncate     EventKind = "truncate"
	EventMessage      EventKind = "message"
	EventStreamStart  EventKind = "stream_start"
	EventStreamStop   EventKind = "stream_stop"
	EventStreamCommit EventKind = "stream_commit"
	EventStreamAbort  EventKind = "stream_abort"
)

// TruncateTarget is one table named by a Truncate event.
type TruncateTarget struct {
	Schema string
	Table  string
}

// Event is the enriched, decoded unit of work delivered to a Handler,
// per §4.6's state-machine table ("enrich with {schema, table, ...}").
type Event struct {
	Kind    EventKind
	Message protocol.WALMessage

	Schema string
	Table  string

	Keys    []string
	NewRow  Row
	OldRow  Row
	Targets []TruncateTarget

	// Prefix/Content/Transactional are set for EventMessage, carrying a
	// pg_logical_emit_message payload through unchanged.
	Prefix        string
	Content       []byte
	Transactional bool

	// LSN is the position this event was read at.
	LSN protocol.LSN

	// Ack is non-nil only for the terminal messages that carry a
	// commit LSN (Commit, StreamCommit, StreamAbort-with-lsn), per
	// §4.6's two-arity handler dispatch. Calling it raises the
	// subscriber's unflushed-lsn watermark; the caller must have
	// durably applied everything up to and including this event first.
	Ack func()
}

// Handler processes one Event. Returning a non-nil error is terminal:
// the subscriber stops and Await() rethrows it (§4.6's "Handler threw").
type Handler func(Event) error
