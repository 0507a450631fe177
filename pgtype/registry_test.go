package pgtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinScalarsRoundTrip(t *testing.T) {
	r := NewRegistry()

	scalarCases := []struct {
		oid uint32
		val any
	}{
		{OIDInt4, int32(-12345)},
		{OIDText, "hello world"},
	}

	for _, tc := range scalarCases {
		encoded, err := r.EncodeValue(tc.oid, tc.val)
		require.NoError(t, err)

		decoded, err := r.DecodeValue(tc.oid, encoded, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.val, decoded)
	}
}

func TestDecodeValueNilIsSQLNull(t *testing.T) {
	r := NewRegistry()
	v, err := r.DecodeValue(OIDInt4, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeValueUnknownOIDWithoutResolverFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.DecodeValue(999999, []byte{1}, stubResolver{ok: false})
	assert.Error(t, err)
}

type stubResolver struct {
	ok       bool
	typtype  byte
	baseType uint32
}

func (s stubResolver) ResolveType(oid uint32) (byte, uint32, bool) {
	return s.typtype, s.baseType, s.ok
}

func TestResolveDomainInstallsBaseCodec(t *testing.T) {
	r := NewRegistry()
	codec, err := r.Resolve(555555, stubResolver{ok: true, typtype: 'd', baseType: OIDInt4})
	require.NoError(t, err)
	assert.Equal(t, "int4", codec.Name)

	// Second resolution should hit the cache and not need the resolver.
	codec2, err := r.Resolve(555555, stubResolver{ok: false})
	require.NoError(t, err)
	assert.Equal(t, codec.Name, codec2.Name)
}

func TestResolveEnumDecodesAsText(t *testing.T) {
	r := NewRegistry()
	codec, err := r.Resolve(444444, stubResolver{ok: true, typtype: 'e'})
	require.NoError(t, err)
	assert.Equal(t, "enum", codec.Name)

	v, err := codec.Decode([]byte("active"))
	require.NoError(t, err)
	assert.Equal(t, "active", v)
}

func TestResolveBaseTypeOverAnotherBaseInstallsItsCodec(t *testing.T) {
	// citext: typtype='b' with typbasetype=text, per §4.2/S5.
	r := NewRegistry()
	codec, err := r.Resolve(222222, stubResolver{ok: true, typtype: 'b', baseType: OIDText})
	require.NoError(t, err)
	assert.Equal(t, "text", codec.Name)

	v, err := codec.Decode([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestResolveBaselessPseudoTypeFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(333333, stubResolver{ok: true, typtype: 'p'})
	assert.Error(t, err)
}
