package replication

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaywire/pgreplicate/protocol"
)

func testColumns() []protocol.Attribute {
	return []protocol.Attribute{
		{Name: "id", TypeOID: 23, Flags: 1},
		{Name: "email", TypeOID: 25, Flags: 0},
	}
}

func TestDefaultKeyFuncReturnsNameUnchanged(t *testing.T) {
	assert.Equal(t, "id", defaultKeyFunc(7, "id"))
}

func TestIsReplicaIdentityKeyReadsAttributeFlags(t *testing.T) {
	cols := testColumns()
	assert.True(t, isReplicaIdentityKey(cols[0]))
	assert.False(t, isReplicaIdentityKey(cols[1]))
}

func TestRelationCacheUpsertAndLookup(t *testing.T) {
	c := newRelationCache(nil)

	_, err := c.lookup(7)
	assert.Error(t, err)

	c.upsert(protocol.RelationMessage{
		RelationID:      7,
		Namespace:       "public",
		RelationName:    "users",
		ReplicaIdentity: protocol.ReplicaIdentityDefault,
		Columns:         testColumns(),
	})

	info, err := c.lookup(7)
	require.NoError(t, err)
	assert.Equal(t, "public", info.schema)
	assert.Equal(t, "users", info.table)
	assert.Equal(t, []string{"id"}, info.keys)
}

// TestRelationCacheHonorsCustomKeyFunc mirrors S1's "with key_fn = keyword,
// keys become :n" example: the key-fn renames the selected key column, it
// does not change which column is selected.
func TestRelationCacheHonorsCustomKeyFunc(t *testing.T) {
	c := newRelationCache(func(tableOID uint32, name string) string {
		return fmt.Sprintf(":%s", name)
	})

	c.upsert(protocol.RelationMessage{RelationID: 1, Columns: testColumns()})
	info, err := c.lookup(1)
	require.NoError(t, err)
	assert.Equal(t, []string{":id"}, info.keys)
}
