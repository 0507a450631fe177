package buffer

import (
	"errors"
	"fmt"
)

// ErrMissingNulTerminator is returned when a string field runs off the end
// of a message without a NUL terminator.
var ErrMissingNulTerminator = errors.New("buffer: NUL terminator not found")

// ErrInsufficientData is returned when a fixed-width field is requested
// but fewer bytes remain in the message than it needs.
var ErrInsufficientData = errors.New("buffer: insufficient data")

// MessageSizeExceeded is returned when a frame declares a body larger
// than MaxMessageSize, almost always a sign the stream has desynchronized.
type MessageSizeExceeded struct {
	Size int
}

func (e *MessageSizeExceeded) Error() string {
	return fmt.Sprintf("buffer: message size %d exceeds limit", e.Size)
}

// NewMessageSizeExceeded constructs a MessageSizeExceeded for size.
func NewMessageSizeExceeded(size int) error {
	return &MessageSizeExceeded{Size: size}
}
