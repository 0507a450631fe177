// Package pgtype implements the binary wire codec (C2): a decoder/encoder
// registry keyed by PostgreSQL type OID, covering the built-in scalar,
// array and range types this client needs to move values on and off the
// wire without a round-trip through text.
package pgtype

import "fmt"

// Decoder turns a binary-format column value into a Go value. src is nil
// for SQL NULL and is never mutated or retained past the call.
type Decoder func(src []byte) (any, error)

// Encoder turns a Go value into its binary wire representation. A nil
// return with a nil error means "encode as SQL NULL".
type Encoder func(v any) ([]byte, error)

// Codec pairs a type's decoder and encoder under its OID and name.
type Codec struct {
	OID     uint32
	Name    string
	Decode  Decoder
	Encode  Encoder
}

// Registry is a value type, not a singleton: a SqlClient or Subscriber
// each own one, so per-connection UnknownDataType resolution (installing
// a decoder learned from pg_type) never leaks across connections.
type Registry struct {
	codecs map[uint32]Codec
}

// NewRegistry builds a Registry pre-populated with the built-in type
// codecs (§4.2).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[uint32]Codec, 64)}
	registerBuiltins(r)
	return r
}

// Register installs or replaces the codec for c.OID.
func (r *Registry) Register(c Codec) {
	r.codecs[c.OID] = c
}

// Lookup returns the codec registered for oid, if any.
func (r *Registry) Lookup(oid uint32) (Codec, bool) {
	c, ok := r.codecs[oid]
	return c, ok
}

// TypeResolver looks up a type's pg_type.typtype and, for domains and
// ranges, its base/subtype OID. It is implemented by the SQL client
// (sql.Client) against a live connection.
type TypeResolver interface {
	ResolveType(oid uint32) (typtype byte, baseType uint32, ok bool)
}

// pg_type.typtype values relevant to UnknownDataType recovery (§4.2).
const (
	typtypeComposite byte = 'c'
	typtypeEnum      byte = 'e'
)

// Resolve implements the UnknownDataType recovery flow of §4.2: a
// composite type (typtype='c') decodes as a Record, an enum (typtype='e')
// decodes as text, and everything else - domains, ranges, and base types
// defined atop another base type such as citext (typtype='b' with
// typbasetype set) - installs typbasetype's own decoder before retrying
// once. Only a genuinely base-less pseudo-type (typtype='p') has nothing
// to fall back to. The resolved codec is cached in the registry under
// oid so the fallback only runs once per unknown type.
func (r *Registry) Resolve(oid uint32, resolver TypeResolver) (Codec, error) {
	if c, ok := r.Lookup(oid); ok {
		return c, nil
	}

	typtype, base, ok := resolver.ResolveType(oid)
	if !ok {
		return Codec{}, fmt.Errorf("pgtype: unknown type oid %d", oid)
	}

	switch typtype {
	case typtypeComposite:
		c := Codec{OID: oid, Name: "record", Decode: decodeRecord, Encode: nil}
		r.Register(c)
		return c, nil
	case typtypeEnum:
		c := Codec{OID: oid, Name: "enum", Decode: decodeText, Encode: encodeText}
		r.Register(c)
		return c, nil
	default:
		baseCodec, ok := r.Lookup(base)
		if !ok {
			return Codec{}, fmt.Errorf("pgtype: typtype %q for oid %d has no usable base type", typtype, oid)
		}
		c := Codec{OID: oid, Name: baseCodec.Name, Decode: baseCodec.Decode, Encode: baseCodec.Encode}
		r.Register(c)
		return c, nil
	}
}

// DecodeValue decodes src (nil meaning SQL NULL) according to oid's
// registered codec, resolving it first if unknown.
func (r *Registry) DecodeValue(oid uint32, src []byte, resolver TypeResolver) (any, error) {
	if src == nil {
		return nil, nil
	}

	c, ok := r.Lookup(oid)
	if !ok {
		var err error
		c, err = r.Resolve(oid, resolver)
		if err != nil {
			return nil, err
		}
	}

	if c.Decode == nil {
		return nil, fmt.Errorf("pgtype: oid %d (%s) has no decoder", oid, c.Name)
	}

	return c.Decode(src)
}

// EncodeValue encodes v according to oid's registered codec.
func (r *Registry) EncodeValue(oid uint32, v any) ([]byte, error) {
	c, ok := r.Lookup(oid)
	if !ok {
		return nil, fmt.Errorf("pgtype: unknown type oid %d", oid)
	}

	if c.Encode == nil {
		return nil, fmt.Errorf("pgtype: oid %d (%s) has no encoder", oid, c.Name)
	}

	return c.Encode(v)
}
