// Package conn implements Frame I/O (C1) and the session/authentication
// startup sequence (C4): dialing, the optional TLS upgrade, and driving
// StartupMessage through to a ready-for-query session.
package conn

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaywire/pgreplicate/buffer"
	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

const keepAlivePeriod = 30 * time.Second

// Connection is one TCP (optionally TLS) session with a PostgreSQL
// backend. All read/write pairs that make up a single request/response
// exchange must be issued while holding mu, so the wire state machine is
// never interleaved (§5); Connection does not implement re-entrant
// locking - every exported method that touches the wire takes and
// releases mu itself, and callers never nest calls to two such methods.
type Connection struct {
	mu sync.Mutex

	netConn net.Conn
	reader  *buffer.Reader
	writer  *buffer.Writer
	logger  *zap.Logger

	backendParams map[string]string
	backendPID    int32
	backendSecret int32

	certHash []byte // set once Secure succeeds
}

// Option configures a Connection at Dial time.
type Option func(*Connection)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// Dial opens a TCP connection to addr (host:port) with keepalives
// enabled and Nagle's algorithm left on (the default), per §4.1.
// Refusal or any dial failure is reported as Unavailable.
func Dial(ctx context.Context, addr string, opts ...Option) (*Connection, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errkind.Unavailablef(fmt.Errorf("conn: dial %s: %w", addr, err))
	}

	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(keepAlivePeriod)
	}

	c := &Connection{
		netConn: raw,
		reader:  buffer.NewReader(raw),
		writer:  buffer.NewWriter(raw),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Secure performs the SSLRequest handshake and, on 'S', wraps the
// connection in a TLS client stream negotiated for TLS 1.2+. A nil cfg
// skips the SSLRequest entirely ("do not attempt TLS"); a refusal ('N')
// leaves the connection unencrypted and returns nil.
func (c *Connection) Secure(ctx context.Context, cfg *tls.Config) error {
	if cfg == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := protocol.WriteSSLRequest(c.writer); err != nil {
		return errkind.WithKind(err, errkind.Unavailable)
	}

	reply, err := c.reader.ReadByte()
	if err != nil {
		return errkind.Unavailablef(fmt.Errorf("conn: read SSLRequest reply: %w", err))
	}

	if reply == 'N' {
		return nil
	}
	if reply != 'S' {
		return errkind.Faultf(fmt.Errorf("conn: unexpected SSLRequest reply byte %q", reply))
	}

	tlsConn := tls.Client(c.netConn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return errkind.Forbiddenf(fmt.Errorf("conn: TLS handshake: %w", err))
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) > 0 {
		sum := sha256.Sum256(state.PeerCertificates[0].Raw)
		c.certHash = sum[:]
	}

	c.netConn = tlsConn
	c.reader = buffer.NewReader(tlsConn)
	c.writer = buffer.NewWriter(tlsConn)

	return nil
}

// CertificateHash returns the SHA-256 of the server's DER-encoded
// end-entity certificate, or nil if the connection is not using TLS. It
// is the input to SCRAM-SHA-256-PLUS channel binding (§4.4).
func (c *Connection) CertificateHash() []byte {
	return c.certHash
}

// BackendParameters returns the ParameterStatus values collected during
// startup.
func (c *Connection) BackendParameters() map[string]string {
	return c.backendParams
}

// BackendKeyData returns the process ID and secret key needed to issue a
// CancelRequest against this session.
func (c *Connection) BackendKeyData() (pid, secret int32) {
	return c.backendPID, c.backendSecret
}

// Lock/Unlock expose the connection-scoped mutex to callers (sql.Client,
// the replication subscriber) that must hold it across a full
// request/response exchange spanning several Read/Write calls.
func (c *Connection) Lock()   { c.mu.Lock() }
func (c *Connection) Unlock() { c.mu.Unlock() }

// Reader returns the connection's frame reader. Callers must hold the
// connection lock, except a goroutine that is the connection's sole
// reader for its lifetime, such as the replication subscriber's reader
// loop.
func (c *Connection) Reader() *buffer.Reader { return c.reader }

// SetReadDeadline forces any in-flight or future Read to return once t
// has passed, without touching the write side - net.Conn guarantees this
// is safe to call from a different goroutine than the one blocked in
// Read. The replication subscriber uses this to unblock its reader
// during shutdown while still being able to write a final
// StandbyStatusUpdate on the same connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.netConn.SetReadDeadline(t)
}

// Writer returns the connection's frame writer. Callers must hold the
// connection lock.
func (c *Connection) Writer() *buffer.Writer { return c.writer }

// Close sends a best-effort Terminate then closes the underlying socket,
// per §4.1.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = protocol.WriteTerminate(c.writer)
	return c.netConn.Close()
}

// sortedKeys returns m's keys in ascending order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
