package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaywire/pgreplicate/pgtype"
	"github.com/relaywire/pgreplicate/protocol"
)

func newTestStateMachine() *stateMachine {
	return newStateMachine(newRelationCache(nil), pgtype.NewRegistry(), nil)
}

func seedRelation(sm *stateMachine, oid uint32) {
	ev, err := sm.handle(protocol.RelationMessage{
		RelationID:      oid,
		Namespace:       "public",
		RelationName:    "users",
		ReplicaIdentity: protocol.ReplicaIdentityDefault,
		Columns:         []protocol.Attribute{{Name: "id", TypeOID: pgtype.OIDInt4, Flags: 1}},
	}, 0, nil)
	if err != nil {
		panic(err)
	}
	if ev.Kind != EventRelation {
		panic("expected relation event")
	}
}

func TestStateMachineInsertEnrichesFromCache(t *testing.T) {
	sm := newTestStateMachine()
	seedRelation(sm, 5)

	ev, err := sm.handle(protocol.InsertMessage{
		RelationID: 5,
		Tuple:      protocol.TupleData{Columns: []protocol.TupleColumn{{Kind: 'b', Data: []byte{0, 0, 0, 9}}}},
	}, protocol.NewLSN(0, 1), nil)
	require.NoError(t, err)

	assert.Equal(t, EventInsert, ev.Kind)
	assert.Equal(t, "public", ev.Schema)
	assert.Equal(t, "users", ev.Table)
	assert.Equal(t, []string{"id"}, ev.Keys)
	assert.Equal(t, int32(9), ev.NewRow["id"])
}

func TestStateMachineInsertHonorsCustomKeyFunc(t *testing.T) {
	sm := newStateMachine(newRelationCache(func(_ uint32, name string) string {
		return ":" + name
	}), pgtype.NewRegistry(), nil)
	seedRelation(sm, 5)

	ev, err := sm.handle(protocol.InsertMessage{
		RelationID: 5,
		Tuple:      protocol.TupleData{Columns: []protocol.TupleColumn{{Kind: 'b', Data: []byte{0, 0, 0, 9}}}},
	}, protocol.NewLSN(0, 1), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{":id"}, ev.Keys)
	assert.Equal(t, int32(9), ev.NewRow[":id"])
}

func TestStateMachineInsertUnknownRelationErrors(t *testing.T) {
	sm := newTestStateMachine()
	_, err := sm.handle(protocol.InsertMessage{RelationID: 99}, 0, nil)
	assert.Error(t, err)
}

func TestStateMachineCommitBindsAck(t *testing.T) {
	sm := newTestStateMachine()

	var acked protocol.LSN
	ackFn := func(lsn protocol.LSN) { acked = lsn }

	ev, err := sm.handle(protocol.CommitMessage{TransactionEndLSN: protocol.NewLSN(0, 42)}, 0, ackFn)
	require.NoError(t, err)
	require.NotNil(t, ev.Ack)

	ev.Ack()
	assert.Equal(t, protocol.NewLSN(0, 42), acked)
}

func TestStateMachineStreamAbortAcksOnlyWithAbortInfo(t *testing.T) {
	sm := newTestStateMachine()

	var acked bool
	ackFn := func(protocol.LSN) { acked = true }

	ev, err := sm.handle(protocol.StreamAbortMessage{HasAbortInfo: false}, 0, ackFn)
	require.NoError(t, err)
	assert.Nil(t, ev.Ack)
	assert.False(t, acked)

	ev, err = sm.handle(protocol.StreamAbortMessage{HasAbortInfo: true, AbortLSN: protocol.NewLSN(0, 3)}, 0, ackFn)
	require.NoError(t, err)
	require.NotNil(t, ev.Ack)
	ev.Ack()
	assert.True(t, acked)
}

func TestStateMachineTruncateExpandsRelationIDs(t *testing.T) {
	sm := newTestStateMachine()
	seedRelation(sm, 1)

	ev, err := sm.handle(protocol.TruncateMessage{RelationIDs: []uint32{1}}, 0, nil)
	require.NoError(t, err)
	require.Len(t, ev.Targets, 1)
	assert.Equal(t, TruncateTarget{Schema: "public", Table: "users"}, ev.Targets[0])
}

func TestStateMachineLogicalMessagePassesThroughPayload(t *testing.T) {
	sm := newTestStateMachine()
	ev, err := sm.handle(protocol.LogicalMessage{Prefix: "app", Content: []byte("hi"), Transactional: true}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "app", ev.Prefix)
	assert.Equal(t, []byte("hi"), ev.Content)
	assert.True(t, ev.Transactional)
}
