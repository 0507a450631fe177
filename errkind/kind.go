// Package errkind implements the five-way error taxonomy shared by every
// layer of the client: frame I/O, authentication, the SQL client and the
// logical-decoding subscriber all classify their failures into one of the
// Kind values declared here so callers can branch on a stable, small set
// of outcomes instead of the underlying error message.
package errkind

import "errors"

// Kind classifies a failure of the client into one of five buckets.
type Kind string

const (
	// Unavailable indicates the peer, or the network path to it, could not
	// be reached or dropped mid-exchange (connection refused, EOF mid-frame,
	// wal_sender_timeout, peer shutdown during replication).
	Unavailable Kind = "unavailable"
	// Forbidden indicates a security failure: a bad TLS certificate or a
	// SCRAM server-signature mismatch. Never retried automatically.
	Forbidden Kind = "forbidden"
	// Incorrect indicates a caller mistake that never touched the wire:
	// an unencodable parameter, or a call made after the client closed.
	Incorrect Kind = "incorrect"
	// Unsupported indicates a feature the client deliberately does not
	// implement: an auth method, a message tag, or CopyIn.
	Unsupported Kind = "unsupported"
	// Fault indicates the wire protocol state machine desynchronized -
	// a decode bug, an I/O error mid-message, or a handler panic while
	// a response was being read. The connection that produced it must be
	// closed; it cannot be resumed mid-message.
	Fault Kind = "fault"
)

// WithKind decorates err with the given Kind. A nil err returns nil.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}

	return &withKind{cause: err, kind: kind}
}

// Of returns the Kind attached to err, or Fault if none was attached -
// an unclassified error is treated as the least forgiving kind, since the
// caller has no better information about whether it is safe to keep the
// connection open.
func Of(err error) Kind {
	if err == nil {
		return ""
	}

	if k, ok := err.(*withKind); ok {
		return k.kind
	}

	if _, ok := err.(*ServerError); ok {
		return ServerErrorKind
	}

	if n := errors.Unwrap(err); n != nil {
		if inner := Of(n); inner != "" {
			return inner
		}
	}

	return Fault
}

// Is reports whether err was classified as kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

type withKind struct {
	cause error
	kind  Kind
}

func (w *withKind) Error() string { return w.cause.Error() }
func (w *withKind) Unwrap() error { return w.cause }

// Unavailablef builds an error already classified as Unavailable.
func Unavailablef(cause error) error { return WithKind(cause, Unavailable) }

// Forbiddenf builds an error already classified as Forbidden.
func Forbiddenf(cause error) error { return WithKind(cause, Forbidden) }

// Incorrectf builds an error already classified as Incorrect.
func Incorrectf(cause error) error { return WithKind(cause, Incorrect) }

// Unsupportedf builds an error already classified as Unsupported.
func Unsupportedf(cause error) error { return WithKind(cause, Unsupported) }

// Faultf builds an error already classified as Fault.
func Faultf(cause error) error { return WithKind(cause, Fault) }
