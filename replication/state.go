package replication

import (
	"fmt"

	"github.com/relaywire/pgreplicate/pgtype"
	"github.com/relaywire/pgreplicate/protocol"
)

// txState tracks whether the connection is inside a transaction sent as
// one block ("complete", pending its own Commit) or as an in-progress
// stream (§4.6's tx-state column). It is bookkeeping only - no decode
// decision depends on it beyond what DecodeContext.InStream already
// carries.
type txState string

const (
	txIdle       txState = "idle"
	txInProgress txState = "in-progress"
	txComplete   txState = "complete"
)

// stateMachine turns a decoded WALMessage into an Event, applying §4.6's
// handle_wal_message table: installing Relation metadata, enriching
// Insert/Update/Delete/Truncate with cached schema/table/key info, and
// attaching Ack to the messages that carry a flushable LSN.
type stateMachine struct {
	relations *relationCache
	registry  *pgtype.Registry
	resolver  pgtype.TypeResolver

	tx txState
}

func newStateMachine(relations *relationCache, registry *pgtype.Registry, resolver pgtype.TypeResolver) *stateMachine {
	return &stateMachine{relations: relations, registry: registry, resolver: resolver}
}

// handle converts msg (read at wal position pos) into an Event. ack, if
// non-nil, is wired into the Event's Ack field for terminal messages -
// the caller supplies a closure bound to the correct LSN so this file
// stays free of subscriber-level flush state.
func (sm *stateMachine) handle(msg protocol.WALMessage, pos protocol.LSN, ackFn func(protocol.LSN)) (Event, error) {
	switch m := msg.(type) {
	case protocol.BeginMessage:
		sm.tx = txComplete
		return Event{Kind: EventBegin, Message: m, LSN: pos}, nil

	case protocol.TypeMessage:
		// Nothing is installed here: this message is delivered as-is. A
		// decoder for the OID is installed by the registry's Resolve
		// path, through ResolveType, only the first time a value of this
		// type is actually decoded (§4.2).
		return Event{Kind: EventType, Message: m, LSN: pos}, nil

	case protocol.RelationMessage:
		sm.relations.upsert(m)
		return Event{Kind: EventRelation, Message: m, Schema: m.Namespace, Table: m.RelationName, LSN: pos}, nil

	case protocol.InsertMessage:
		info, err := sm.relations.lookup(m.RelationID)
		if err != nil {
			return Event{}, err
		}
		row, err := decodeRow(info, m.Tuple, sm.registry, sm.resolver, sm.relations.keyFunc)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventInsert, Message: m, Schema: info.schema, Table: info.table, Keys: info.keys, NewRow: row, LSN: pos}, nil

	case protocol.UpdateMessage:
		info, err := sm.relations.lookup(m.RelationID)
		if err != nil {
			return Event{}, err
		}
		newRow, err := decodeRow(info, m.NewTuple, sm.registry, sm.resolver, sm.relations.keyFunc)
		if err != nil {
			return Event{}, err
		}
		var oldRow Row
		if m.OldTuple != nil {
			oldRow, err = decodeRow(info, *m.OldTuple, sm.registry, sm.resolver, sm.relations.keyFunc)
			if err != nil {
				return Event{}, err
			}
		}
		return Event{Kind: EventUpdate, Message: m, Schema: info.schema, Table: info.table, Keys: info.keys, NewRow: newRow, OldRow: oldRow, LSN: pos}, nil

	case protocol.DeleteMessage:
		info, err := sm.relations.lookup(m.RelationID)
		if err != nil {
			return Event{}, err
		}
		oldRow, err := decodeRow(info, m.OldTuple, sm.registry, sm.resolver, sm.relations.keyFunc)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventDelete, Message: m, Schema: info.schema, Table: info.table, Keys: info.keys, OldRow: oldRow, LSN: pos}, nil

	case protocol.TruncateMessage:
		targets := make([]TruncateTarget, 0, len(m.RelationIDs))
		for _, oid := range m.RelationIDs {
			info, err := sm.relations.lookup(oid)
			if err != nil {
				return Event{}, err
			}
			targets = append(targets, TruncateTarget{Schema: info.schema, Table: info.table})
		}
		return Event{Kind: EventTruncate, Message: m, Targets: targets, LSN: pos}, nil

	case protocol.LogicalMessage:
		return Event{Kind: EventMessage, Message: m, Prefix: m.Prefix, Content: m.Content, Transactional: m.Transactional, LSN: pos}, nil

	case protocol.StreamStartMessage:
		sm.tx = txInProgress
		return Event{Kind: EventStreamStart, Message: m, LSN: pos}, nil

	case protocol.StreamStopMessage:
		return Event{Kind: EventStreamStop, Message: m, LSN: pos}, nil

	case protocol.StreamCommitMessage:
		sm.tx = txComplete
		ev := Event{Kind: EventStreamCommit, Message: m, LSN: pos}
		bindAck(&ev, m.TransactionEndLSN, ackFn)
		return ev, nil

	case protocol.StreamAbortMessage:
		sm.tx = txComplete
		ev := Event{Kind: EventStreamAbort, Message: m, LSN: pos}
		if m.HasAbortInfo {
			bindAck(&ev, m.AbortLSN, ackFn)
		}
		return ev, nil

	case protocol.CommitMessage:
		sm.tx = txComplete
		ev := Event{Kind: EventCommit, Message: m, LSN: pos}
		bindAck(&ev, m.TransactionEndLSN, ackFn)
		return ev, nil

	case protocol.OriginMessage:
		return Event{Kind: EventOrigin, Message: m, LSN: pos}, nil

	default:
		return Event{}, fmt.Errorf("replication: unhandled WAL message type %T", msg)
	}
}

func bindAck(ev *Event, lsn protocol.LSN, ackFn func(protocol.LSN)) {
	if ackFn == nil {
		return
	}
	ev.Ack = func() { ackFn(lsn) }
}
