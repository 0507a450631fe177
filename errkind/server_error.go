package errkind

import (
	"fmt"

	"github.com/relaywire/pgreplicate/codes"
)

// ServerError is the decoded field mapping of a backend ErrorResponse or
// NoticeResponse message (protocol-error-fields.html). It preserves wire
// state: receiving one does not by itself require closing the connection,
// unlike a Fault.
type ServerError struct {
	Severity   string
	Code       codes.Code
	Message    string
	Detail     string
	Hint       string
	Position   string
	Schema     string
	Table      string
	Column     string
	DataType   string
	Constraint string
	File       string
	Line       string
	Routine    string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s: %s", e.Severity, e.Code, e.Message, e.Detail)
	}

	return fmt.Sprintf("%s (%s): %s", e.Severity, e.Code, e.Message)
}

// Kind implements the same interrogation shape as WithKind: a ServerError
// is always classified as its own dedicated marker so callers can recover
// the structured fields with errors.As instead of losing them behind a
// generic Fault.
const ServerErrorKind Kind = "server-error"

// duplicateObject is the error code Postgres uses for CREATE ... IF NOT
// EXISTS races and other "already exists" conditions raised outside of an
// IF NOT EXISTS clause (e.g. CREATE PUBLICATION, CREATE_REPLICATION_SLOT).
const duplicateObject codes.Code = "42710"

// IsDuplicateObject reports whether err is a ServerError with the
// duplicate_object SQLSTATE.
func IsDuplicateObject(err error) bool {
	se, ok := AsServerError(err)
	return ok && se.Code == duplicateObject
}

// AsServerError unwraps err looking for a *ServerError.
func AsServerError(err error) (*ServerError, bool) {
	for err != nil {
		if se, ok := err.(*ServerError); ok {
			return se, true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}

		err = u.Unwrap()
	}

	return nil, false
}
