package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStandbyStatusUpdateLayout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	buf := EncodeStandbyStatusUpdate(NewLSN(1, 100), NewLSN(1, 200), NewLSN(1, 300), now, true)

	require.Len(t, buf, 34)
	assert.Equal(t, byte(standbyStatusTag), buf[0])
	assert.Equal(t, byte(1), buf[33])

	got, err := DecodeReplicationMessage(buf)
	require.Error(t, err) // 'r' is a frontend-only submessage the client never decodes
	assert.Nil(t, got)
}

func TestDecodeReplicationMessageXLogData(t *testing.T) {
	payload := make([]byte, 25+3)
	payload[0] = xLogDataTag
	writeUint64At(payload, 1, uint64(NewLSN(1, 10)))
	writeUint64At(payload, 9, uint64(NewLSN(1, 40)))
	writeUint64At(payload, 17, uint64(MicrosSinceEpoch(time.Now())))
	copy(payload[25:], []byte("abc"))

	msg, err := DecodeReplicationMessage(payload)
	require.NoError(t, err)

	xld, ok := msg.(*XLogData)
	require.True(t, ok)
	assert.Equal(t, NewLSN(1, 10), xld.WALStart)
	assert.Equal(t, NewLSN(1, 40), xld.WALEnd)
	assert.Equal(t, []byte("abc"), xld.Data)
}

func TestDecodeReplicationMessageKeepalive(t *testing.T) {
	payload := make([]byte, 18)
	payload[0] = primaryKeepaliveTag
	writeUint64At(payload, 1, uint64(NewLSN(2, 0)))
	writeUint64At(payload, 9, uint64(MicrosSinceEpoch(time.Now())))
	payload[17] = 1

	msg, err := DecodeReplicationMessage(payload)
	require.NoError(t, err)

	ka, ok := msg.(*PrimaryKeepalive)
	require.True(t, ok)
	assert.Equal(t, NewLSN(2, 0), ka.WALEnd)
	assert.True(t, ka.ReplyRequested)
}

func TestDecodeReplicationMessageRejectsShortPayload(t *testing.T) {
	_, err := DecodeReplicationMessage([]byte{xLogDataTag, 0, 0})
	assert.Error(t, err)

	_, err = DecodeReplicationMessage(nil)
	assert.Error(t, err)

	_, err = DecodeReplicationMessage([]byte{'?'})
	assert.Error(t, err)
}

func writeUint64At(b []byte, offset int, v uint64) {
	for i := 0; i < 8; i++ {
		b[offset+7-i] = byte(v)
		v >>= 8
	}
}
