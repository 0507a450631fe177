package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaywire/pgreplicate/protocol"
)

func TestOptionsWithDefaultsFillsZeroValues(t *testing.T) {
	got := Options{}.withDefaults()

	assert.Equal(t, defaultProtoVersion, got.ProtocolVersion)
	assert.Equal(t, protocol.StreamingOff, got.Streaming)
	assert.Equal(t, defaultAckInterval, got.AckInterval)
	assert.Equal(t, defaultQueueSize, got.QueueSize)
	assert.NotNil(t, got.Logger)
}

func TestOptionsWithDefaultsPreservesExplicitValues(t *testing.T) {
	got := Options{ProtocolVersion: 4, Streaming: protocol.StreamingParallel, QueueSize: 8}.withDefaults()

	assert.Equal(t, 4, got.ProtocolVersion)
	assert.Equal(t, protocol.StreamingParallel, got.Streaming)
	assert.Equal(t, 8, got.QueueSize)
}
