package sql

import (
	"context"

	"github.com/relaywire/pgreplicate/pgtype"
)

// ResolveType implements pgtype.TypeResolver against pg_catalog.pg_type
// itself, so DecodeValue's UnknownDataType fallback of §4.2 can install
// an alias decoder without the caller wiring up a separate lookup path.
// This runs over Extended rather than Simple: the simple query protocol
// always returns DataRow values in text format, but the registry's
// decoders (decodeChar/decodeOID included) are binary-only, so a
// Simple-backed lookup here would fail to decode its own result and
// report every OID as unresolvable. The OID is bound as a parameter
// rather than interpolated, so it goes through the same binary
// parameter path as any other query.
func (c *Client) ResolveType(oid uint32) (typtype byte, baseType uint32, ok bool) {
	results, err := c.Extended(context.Background(), QuerySpec{
		SQL:    "SELECT typtype, typbasetype FROM pg_catalog.pg_type WHERE oid = $1::oid",
		Params: []any{int64(oid)},
	})
	if err != nil || len(results) != 1 || len(results[0].Rows) != 1 {
		return 0, 0, false
	}

	row := results[0].Rows[0].Values
	tt, ok1 := row[0].(byte)
	base, ok2 := row[1].(uint32)
	if !ok1 || !ok2 {
		return 0, 0, false
	}

	return tt, base, true
}

var _ pgtype.TypeResolver = (*Client)(nil)
