// Package sql implements the SQL client (C5): simple query, extended
// query/pipeline, and the replication-adjacent admin helpers
// (CREATE_REPLICATION_SLOT, DROP_REPLICATION_SLOT, emit_message).
package sql

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/relaywire/pgreplicate/conn"
	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/pgtype"
)

// Client is a single PostgreSQL session driving the simple and extended
// query protocols. It is single-thread-safe: the underlying Connection's
// mutex serializes concurrent callers, per §5.
type Client struct {
	conn     *conn.Connection
	registry *pgtype.Registry
	logger   *zap.Logger
	oidFn    OIDFunc
	closed   atomic.Bool
}

// OIDFunc lets a caller override parameter OID inference for
// application-specific types; returning ok=false falls back to
// builtinOID.
type OIDFunc func(v any) (oid uint32, ok bool)

// Option configures a Client at Connect time.
type Option func(*Client)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithOIDFunc installs a custom parameter-type inference function,
// consulted before the built-in OID table (§4.5's `oid_fn(value) ??
// builtin_oid(value)`).
func WithOIDFunc(fn OIDFunc) Option {
	return func(c *Client) { c.oidFn = fn }
}

// WithRegistry overrides the default built-in type registry, e.g. to
// share one already populated with UnknownDataType aliases across a
// subscriber's SQL client and replication connection.
func WithRegistry(r *pgtype.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// Config names the connection target and startup parameters.
type Config struct {
	Addr            string
	User            string
	Database        string
	Password        string
	ApplicationName string
	TLSConfig       *tls.Config // nil disables TLS entirely
	Replication     string      // "", "true" or "database"
}

// Connect dials addr, performs the TLS/startup/auth sequence of §4.4, and
// returns a ready Client.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c, err := conn.Dial(ctx, cfg.Addr)
	if err != nil {
		return nil, err
	}

	if err := c.Secure(ctx, cfg.TLSConfig); err != nil {
		_ = c.Close()
		return nil, err
	}

	params := conn.StartupParams{
		User:            cfg.User,
		Database:        cfg.Database,
		Replication:     cfg.Replication,
		ApplicationName: cfg.ApplicationName,
	}
	if err := c.Startup(ctx, params, cfg.Password); err != nil {
		_ = c.Close()
		return nil, err
	}

	client := &Client{
		conn:     c,
		registry: pgtype.NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying connection. Subsequent calls on the
// client raise Incorrect, per §7.
func (c *Client) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}

// checkOpen enforces §7's "subsequent calls on a closed client raise
// Incorrect".
func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return errkind.Incorrectf(fmt.Errorf("sql: disconnected from server"))
	}
	return nil
}

// fail applies §7's user-visible failure policy: Incorrect, Unsupported
// and server-error leave the client usable; anything else (Unavailable,
// Forbidden, Fault) closes it.
func (c *Client) fail(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := errkind.AsServerError(err); ok {
		return err
	}

	switch errkind.Of(err) {
	case errkind.Incorrect, errkind.Unsupported:
		return err
	default:
		c.closed.Store(true)
		_ = c.conn.Close()
		return err
	}
}

// Connection exposes the underlying connection for callers (the
// replication subscriber) that need to drive the wire protocol below
// the SQL client's request/response abstraction.
func (c *Client) Connection() *conn.Connection { return c.conn }

// Registry exposes the client's type registry.
func (c *Client) Registry() *pgtype.Registry { return c.registry }
