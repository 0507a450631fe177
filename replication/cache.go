package replication

import (
	"fmt"
	"sync"

	"github.com/relaywire/pgreplicate/protocol"
)

// KeyFunc renders the stable row/key-attr-name for one column, given its
// table's OID and its wire name (§3 "Row - mapping keyed by
// key-fn(table-OID, name)", §6.4's `key_fn` session option). The default
// keyFunc returns name unchanged.
type KeyFunc func(tableOID uint32, name string) string

func defaultKeyFunc(_ uint32, name string) string { return name }

// isReplicaIdentityKey reports whether col is part of the table's replica
// identity, per the wire's own attribute flags - this is never
// overridden by key-fn, which only renames keys, it does not choose them.
func isReplicaIdentityKey(col protocol.Attribute) bool {
	return col.Flags.IsKey()
}

// relationInfo is the cached, decode-ready shape of a Relation message:
// schema/table names and the key-attr-names (already passed through
// key-fn) needed to build Update/Delete events without re-deriving them
// from the raw Attribute list every time.
type relationInfo struct {
	oid      uint32
	schema   string
	table    string
	identity protocol.ReplicaIdentity
	columns  []protocol.Attribute
	keys     []string
}

// relationCache upserts relationInfo by OID as Relation messages arrive,
// per §4.6's replication state machine row for "Relation(oid,...)".
type relationCache struct {
	mu      sync.RWMutex
	byOID   map[uint32]*relationInfo
	keyFunc KeyFunc
}

func newRelationCache(keyFunc KeyFunc) *relationCache {
	if keyFunc == nil {
		keyFunc = defaultKeyFunc
	}
	return &relationCache{byOID: make(map[uint32]*relationInfo), keyFunc: keyFunc}
}

func (c *relationCache) upsert(msg protocol.RelationMessage) {
	var keys []string
	for _, col := range msg.Columns {
		if isReplicaIdentityKey(col) {
			keys = append(keys, c.keyFunc(msg.RelationID, col.Name))
		}
	}

	info := &relationInfo{
		oid:      msg.RelationID,
		schema:   msg.Namespace,
		table:    msg.RelationName,
		identity: msg.ReplicaIdentity,
		columns:  msg.Columns,
		keys:     keys,
	}

	c.mu.Lock()
	c.byOID[msg.RelationID] = info
	c.mu.Unlock()
}

func (c *relationCache) lookup(oid uint32) (*relationInfo, error) {
	c.mu.RLock()
	info, ok := c.byOID[oid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("replication: no Relation message seen for OID %d", oid)
	}
	return info, nil
}
