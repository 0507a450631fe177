package sql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/pgtype"
)

// encodeParams turns a query's Go-typed parameters into their wire OIDs
// and bytes, per §4.5: "Parameter OIDs come from oid_fn(value) ??
// builtin_oid(value)." A nil value is sent as untyped SQL NULL (OID 0);
// a non-nil value whose OID neither function can resolve is rejected
// rather than silently encoded as NULL, since Bind has no way to tell
// "unknown type" apart from "absent value" once the bytes are written.
// Any encoding failure is Incorrect and happens before any frame for
// the query has been written, so the wire state is untouched (§9).
func (c *Client) encodeParams(params []any) (oids []uint32, values [][]byte, err error) {
	oids = make([]uint32, len(params))
	values = make([][]byte, len(params))

	for i, p := range params {
		if p == nil {
			continue // OID 0, value nil -> encoded as SQL NULL by Bind
		}

		oid, ok := uint32(0), false
		if c.oidFn != nil {
			oid, ok = c.oidFn(p)
		}
		if !ok {
			oid, ok = builtinOID(p)
		}
		if oid == 0 {
			return nil, nil, errkind.Incorrectf(fmt.Errorf("sql: parameter %d of type %T has no known OID; supply an oidFn", i, p))
		}
		oids[i] = oid

		b, err := c.registry.EncodeValue(oid, p)
		if err != nil {
			return nil, nil, errkind.Incorrectf(fmt.Errorf("sql: encode parameter %d: %w", i, err))
		}
		values[i] = b
	}

	return oids, values, nil
}

// builtinOID infers a parameter's wire OID from its Go type.
func builtinOID(v any) (uint32, bool) {
	switch v.(type) {
	case bool:
		return pgtype.OIDBool, true
	case []byte:
		return pgtype.OIDBytea, true
	case string:
		return pgtype.OIDText, true
	case int16:
		return pgtype.OIDInt2, true
	case int32:
		return pgtype.OIDInt4, true
	case int:
		return pgtype.OIDInt8, true
	case int64:
		return pgtype.OIDInt8, true
	case float32:
		return pgtype.OIDFloat4, true
	case float64:
		return pgtype.OIDFloat8, true
	case decimal.Decimal:
		return pgtype.OIDNumeric, true
	case uuid.UUID:
		return pgtype.OIDUUID, true
	case time.Time:
		return pgtype.OIDTimestamptz, true
	case time.Duration:
		return pgtype.OIDTime, true
	default:
		return 0, false
	}
}
