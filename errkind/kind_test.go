package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaywire/pgreplicate/codes"
)

func TestWithKindClassification(t *testing.T) {
	err := Unavailablef(errors.New("connection refused"))
	assert.True(t, Is(err, Unavailable))
	assert.Equal(t, Unavailable, Of(err))
}

func TestWithKindNilIsNil(t *testing.T) {
	assert.Nil(t, WithKind(nil, Fault))
}

func TestOfUnclassifiedDefaultsToFault(t *testing.T) {
	assert.Equal(t, Fault, Of(errors.New("bare error")))
}

func TestOfUnwrapsWrappedKind(t *testing.T) {
	base := Incorrectf(errors.New("bad parameter"))
	wrapped := fmt.Errorf("encode failed: %w", base)
	assert.Equal(t, Incorrect, Of(wrapped))
}

func TestServerErrorClassifiesAsServerErrorKind(t *testing.T) {
	se := &ServerError{Severity: "ERROR", Code: codes.UniqueViolation, Message: "duplicate key"}
	assert.Equal(t, ServerErrorKind, Of(se))
}

func TestIsDuplicateObject(t *testing.T) {
	se := &ServerError{Code: "42710"}
	assert.True(t, IsDuplicateObject(se))

	other := &ServerError{Code: codes.UniqueViolation}
	assert.False(t, IsDuplicateObject(other))
}

func TestAsServerErrorUnwrapsChain(t *testing.T) {
	se := &ServerError{Severity: "FATAL", Code: codes.ConnectionFailure, Message: "terminating"}
	wrapped := fmt.Errorf("read frame: %w", se)

	found, ok := AsServerError(wrapped)
	assert.True(t, ok)
	assert.Same(t, se, found)
}

func TestServerErrorMessageIncludesDetail(t *testing.T) {
	se := &ServerError{Severity: "ERROR", Code: codes.UniqueViolation, Message: "duplicate key", Detail: "Key (id)=(1) already exists."}
	assert.Contains(t, se.Error(), "duplicate key")
	assert.Contains(t, se.Error(), "already exists")
}
