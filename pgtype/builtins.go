package pgtype

import "github.com/lib/pq/oid"

// Built-in type OIDs, the authoritative table of §4.2. A handful of the
// newer types (pg_lsn, jsonb, the range types) postdate lib/pq's
// generated oid table, so those are literal constants; everything lib/pq
// knows about is referenced through oid.Oid to keep the registry
// grounded in the same constant table row.go uses.
const (
	OIDBool        = uint32(oid.T_bool)
	OIDBytea       = uint32(oid.T_bytea)
	OIDChar        = uint32(oid.T_char)
	OIDName        = uint32(oid.T_name)
	OIDInt8        = uint32(oid.T_int8)
	OIDInt2        = uint32(oid.T_int2)
	OIDInt4        = uint32(oid.T_int4)
	OIDText        = uint32(oid.T_text)
	OIDOID         = uint32(oid.T_oid)
	OIDXID         = uint32(oid.T_xid)
	OIDJSON        = uint32(oid.T_json)
	OIDPoint       = uint32(oid.T_point)
	OIDLseg        = uint32(oid.T_lseg)
	OIDPath        = uint32(oid.T_path)
	OIDBox         = uint32(oid.T_box)
	OIDPolygon     = uint32(oid.T_polygon)
	OIDLine        = uint32(oid.T_line)
	OIDFloat4      = uint32(oid.T_float4)
	OIDFloat8      = uint32(oid.T_float8)
	OIDCircle      = uint32(oid.T_circle)
	OIDMoney       = uint32(oid.T_money)
	OIDInet        = uint32(oid.T_inet)
	OIDBpchar      = uint32(oid.T_bpchar)
	OIDVarchar     = uint32(oid.T_varchar)
	OIDDate        = uint32(oid.T_date)
	OIDTime        = uint32(oid.T_time)
	OIDTimestamp   = uint32(oid.T_timestamp)
	OIDTimestamptz = uint32(oid.T_timestamptz)
	OIDInterval    = uint32(oid.T_interval)
	OIDTimetz      = uint32(oid.T_timetz)
	OIDNumeric     = uint32(oid.T_numeric)

	// Not present in lib/pq's generated table; taken directly from the
	// PostgreSQL catalog (§4.2).
	OIDRecord     = 2249
	OIDUUID       = 2950
	OIDPgLSN      = 3220
	OIDTSVector   = 3614
	OIDJSONB      = 3802
	OIDInt4Range  = 3904
	OIDNumRange   = 3906
	OIDTSRange    = 3908
	OIDTSTZRange  = 3910
	OIDDateRange  = 3912
	OIDInt8Range  = 3926

	// Array OIDs (element_oid's paired container), from the PostgreSQL
	// catalog's negative-array-OID convention: the same numbers lib/pq's
	// table uses under its "_"-prefixed T__xxx names.
	OIDBoolArray        = uint32(oid.T__bool)
	OIDByteaArray       = uint32(oid.T__bytea)
	OIDInt2Array        = uint32(oid.T__int2)
	OIDInt4Array        = uint32(oid.T__int4)
	OIDInt8Array        = uint32(oid.T__int8)
	OIDTextArray        = uint32(oid.T__text)
	OIDFloat4Array      = uint32(oid.T__float4)
	OIDFloat8Array      = uint32(oid.T__float8)
	OIDVarcharArray     = uint32(oid.T__varchar)
	OIDNumericArray     = uint32(oid.T__numeric)
	OIDUUIDArray        = 2951
	OIDJSONBArray       = 3807
	OIDTimestampArray   = uint32(oid.T__timestamp)
	OIDTimestamptzArray = uint32(oid.T__timestamptz)
	OIDDateArray        = uint32(oid.T__date)
)

func registerBuiltins(r *Registry) {
	scalars := []Codec{
		{OID: OIDBool, Name: "bool", Decode: decodeBool, Encode: encodeBool},
		{OID: OIDBytea, Name: "bytea", Decode: decodeBytea, Encode: encodeBytea},
		{OID: OIDChar, Name: "char", Decode: decodeChar, Encode: encodeChar},
		{OID: OIDName, Name: "name", Decode: decodeText, Encode: encodeText},
		{OID: OIDInt8, Name: "int8", Decode: decodeInt8, Encode: encodeInt8},
		{OID: OIDInt2, Name: "int2", Decode: decodeInt2, Encode: encodeInt2},
		{OID: OIDInt4, Name: "int4", Decode: decodeInt4, Encode: encodeInt4},
		{OID: OIDText, Name: "text", Decode: decodeText, Encode: encodeText},
		{OID: OIDOID, Name: "oid", Decode: decodeOID, Encode: encodeOID},
		{OID: OIDXID, Name: "xid", Decode: decodeOID, Encode: encodeOID},
		{OID: OIDJSON, Name: "json", Decode: decodeJSON, Encode: encodeJSON},
		{OID: OIDRecord, Name: "record", Decode: decodeRecord},
		{OID: OIDPoint, Name: "point", Decode: decodePoint, Encode: encodePoint},
		{OID: OIDLseg, Name: "lseg", Decode: decodeLseg, Encode: encodeLseg},
		{OID: OIDPath, Name: "path", Decode: decodePath, Encode: encodePath},
		{OID: OIDBox, Name: "box", Decode: decodeBox, Encode: encodeBox},
		{OID: OIDPolygon, Name: "polygon", Decode: decodePolygon, Encode: encodePolygon},
		{OID: OIDLine, Name: "line", Decode: decodeLine, Encode: encodeLine},
		{OID: OIDFloat4, Name: "float4", Decode: decodeFloat4, Encode: encodeFloat4},
		{OID: OIDFloat8, Name: "float8", Decode: decodeFloat8, Encode: encodeFloat8},
		{OID: OIDCircle, Name: "circle", Decode: decodeCircle, Encode: encodeCircle},
		{OID: OIDMoney, Name: "money", Decode: decodeMoney, Encode: encodeMoney},
		{OID: OIDInet, Name: "inet", Decode: decodeInet, Encode: encodeInet},
		{OID: OIDBpchar, Name: "bpchar", Decode: decodeText, Encode: encodeText},
		{OID: OIDVarchar, Name: "varchar", Decode: decodeText, Encode: encodeText},
		{OID: OIDDate, Name: "date", Decode: decodeDate, Encode: encodeDate},
		{OID: OIDTimestamptz, Name: "timestamptz", Decode: decodeTimestamptz, Encode: encodeTimestamptz},
		{OID: OIDTime, Name: "time", Decode: decodeTime, Encode: encodeTime},
		{OID: OIDTimestamp, Name: "timestamp", Decode: decodeTimestamp, Encode: encodeTimestamp},
		{OID: OIDInterval, Name: "interval", Decode: decodeInterval, Encode: encodeInterval},
		{OID: OIDTimetz, Name: "timetz", Decode: decodeTimetz, Encode: encodeTimetz},
		{OID: OIDNumeric, Name: "numeric", Decode: decodeNumeric, Encode: encodeNumeric},
		{OID: OIDUUID, Name: "uuid", Decode: decodeUUID, Encode: encodeUUID},
		{OID: OIDPgLSN, Name: "pg_lsn", Decode: decodePgLSN, Encode: encodePgLSN},
		{OID: OIDTSVector, Name: "tsvector", Decode: decodeTSVector},
		{OID: OIDJSONB, Name: "jsonb", Decode: decodeJSONB, Encode: encodeJSONB},
		{OID: OIDInt4Range, Name: "int4range", Decode: decodeRange, Encode: encodeRange},
		{OID: OIDNumRange, Name: "numrange", Decode: decodeRange, Encode: encodeRange},
		{OID: OIDTSRange, Name: "tsrange", Decode: decodeRange, Encode: encodeRange},
		{OID: OIDTSTZRange, Name: "tstzrange", Decode: decodeRange, Encode: encodeRange},
		{OID: OIDDateRange, Name: "daterange", Decode: decodeRange, Encode: encodeRange},
		{OID: OIDInt8Range, Name: "int8range", Decode: decodeRange, Encode: encodeRange},
	}

	for _, c := range scalars {
		r.Register(c)
	}

	// Array pairings: §4.2's "a new element type is registered as an
	// array automatically via its paired array_oid in the built-in
	// table". elemOID here is only used to stamp the wire header on
	// encode; decode trusts the frame it was handed.
	arrays := []struct {
		oid     uint32
		elemOID uint32
		name    string
		elem    Codec
	}{
		{OIDBoolArray, OIDBool, "bool[]", mustLookup(r, OIDBool)},
		{OIDByteaArray, OIDBytea, "bytea[]", mustLookup(r, OIDBytea)},
		{OIDInt2Array, OIDInt2, "int2[]", mustLookup(r, OIDInt2)},
		{OIDInt4Array, OIDInt4, "int4[]", mustLookup(r, OIDInt4)},
		{OIDInt8Array, OIDInt8, "int8[]", mustLookup(r, OIDInt8)},
		{OIDTextArray, OIDText, "text[]", mustLookup(r, OIDText)},
		{OIDFloat4Array, OIDFloat4, "float4[]", mustLookup(r, OIDFloat4)},
		{OIDFloat8Array, OIDFloat8, "float8[]", mustLookup(r, OIDFloat8)},
		{OIDVarcharArray, OIDVarchar, "varchar[]", mustLookup(r, OIDVarchar)},
		{OIDNumericArray, OIDNumeric, "numeric[]", mustLookup(r, OIDNumeric)},
		{OIDUUIDArray, OIDUUID, "uuid[]", mustLookup(r, OIDUUID)},
		{OIDJSONBArray, OIDJSONB, "jsonb[]", mustLookup(r, OIDJSONB)},
		{OIDTimestampArray, OIDTimestamp, "timestamp[]", mustLookup(r, OIDTimestamp)},
		{OIDTimestamptzArray, OIDTimestamptz, "timestamptz[]", mustLookup(r, OIDTimestamptz)},
		{OIDDateArray, OIDDate, "date[]", mustLookup(r, OIDDate)},
	}

	for _, a := range arrays {
		r.Register(Codec{
			OID:    a.oid,
			Name:   a.name,
			Decode: newArrayDecoder(a.elem.Decode),
			Encode: newArrayEncoder(a.elemOID, a.elem.Encode),
		})
	}
}

func mustLookup(r *Registry, oid uint32) Codec {
	c, ok := r.Lookup(oid)
	if !ok {
		panic("pgtype: builtin scalar registered out of order")
	}
	return c
}
