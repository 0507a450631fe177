package replication

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaywire/pgreplicate/pgtype"
	"github.com/relaywire/pgreplicate/protocol"
)

func relInfoForRow() *relationInfo {
	return &relationInfo{
		oid:    1,
		schema: "public",
		table:  "users",
		columns: []protocol.Attribute{
			{Name: "id", TypeOID: pgtype.OIDInt4},
			{Name: "bio", TypeOID: pgtype.OIDText},
			{Name: "deleted_at", TypeOID: pgtype.OIDInt4},
		},
	}
}

func TestDecodeRowOmitsNullAndUnchangedColumns(t *testing.T) {
	registry := pgtype.NewRegistry()
	tuple := protocol.TupleData{Columns: []protocol.TupleColumn{
		{Kind: 'b', Data: []byte{0, 0, 0, 42}},
		{Kind: 'n'},
		{Kind: 'u'},
	}}

	row, err := decodeRow(relInfoForRow(), tuple, registry, nil, defaultKeyFunc)
	require.NoError(t, err)

	assert.Equal(t, int32(42), row["id"])
	_, hasBio := row["bio"]
	assert.False(t, hasBio)
	_, hasDeleted := row["deleted_at"]
	assert.False(t, hasDeleted)
}

func TestDecodeRowPassesThroughTextColumns(t *testing.T) {
	registry := pgtype.NewRegistry()
	tuple := protocol.TupleData{Columns: []protocol.TupleColumn{
		{Kind: 'b', Data: []byte{0, 0, 0, 1}},
		{Kind: 't', Data: []byte("hello")},
		{Kind: 'n'},
	}}

	row, err := decodeRow(relInfoForRow(), tuple, registry, nil, defaultKeyFunc)
	require.NoError(t, err)
	assert.Equal(t, "hello", row["bio"])
}

func TestDecodeRowRejectsColumnCountMismatch(t *testing.T) {
	registry := pgtype.NewRegistry()
	tuple := protocol.TupleData{Columns: []protocol.TupleColumn{{Kind: 'n'}}}

	_, err := decodeRow(relInfoForRow(), tuple, registry, nil, defaultKeyFunc)
	assert.Error(t, err)
}

func TestDecodeRowRejectsUnknownColumnKind(t *testing.T) {
	registry := pgtype.NewRegistry()
	tuple := protocol.TupleData{Columns: []protocol.TupleColumn{
		{Kind: 'x'},
		{Kind: 'n'},
		{Kind: 'n'},
	}}

	_, err := decodeRow(relInfoForRow(), tuple, registry, nil, defaultKeyFunc)
	assert.Error(t, err)
}

// TestDecodeRowAppliesKeyFuncToEveryColumn matches §3's "Row - mapping
// keyed by key-fn(table-OID, name)": key-fn renames every entry in the
// row map, not only the replica-identity columns.
func TestDecodeRowAppliesKeyFuncToEveryColumn(t *testing.T) {
	registry := pgtype.NewRegistry()
	tuple := protocol.TupleData{Columns: []protocol.TupleColumn{
		{Kind: 'b', Data: []byte{0, 0, 0, 42}},
		{Kind: 't', Data: []byte("hello")},
		{Kind: 'n'},
	}}

	keyFunc := func(tableOID uint32, name string) string {
		return fmt.Sprintf(":%s", name)
	}

	row, err := decodeRow(relInfoForRow(), tuple, registry, nil, keyFunc)
	require.NoError(t, err)
	assert.Equal(t, int32(42), row[":id"])
	assert.Equal(t, "hello", row[":bio"])
	_, hasDeleted := row[":deleted_at"]
	assert.False(t, hasDeleted)
}
