package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLSNStringFormat(t *testing.T) {
	lsn := NewLSN(0x16, 0x339C1F8)
	assert.Equal(t, "16/339C1F8", lsn.String())
}

func TestLSNRoundTrip(t *testing.T) {
	cases := []LSN{0, 1, NewLSN(0, 1), NewLSN(1, 0), NewLSN(0xFFFFFFFF, 0xFFFFFFFF)}
	for _, want := range cases {
		got, err := ParseLSN(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseLSNRejectsMalformed(t *testing.T) {
	_, err := ParseLSN("not-an-lsn")
	assert.Error(t, err)

	_, err = ParseLSN("16")
	assert.Error(t, err)

	_, err = ParseLSN("ZZ/1")
	assert.Error(t, err)
}
