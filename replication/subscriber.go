// Package replication implements the logical-decoding subscriber (C6)
// and its flow-controlled handler executor (C7): connecting a
// replication-mode primary connection alongside an auxiliary SQL
// connection, driving START_REPLICATION, decoding pgoutput messages into
// enriched Events, and periodically acknowledging progress with
// StandbyStatusUpdate.
package replication

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relaywire/pgreplicate/conn"
	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/pgtype"
	"github.com/relaywire/pgreplicate/protocol"
	"github.com/relaywire/pgreplicate/sql"
)

// Subscriber is a live logical-replication session: a primary connection
// streaming pgoutput changes plus an auxiliary SQL connection used for
// type-catalog lookups, per §4.6.
type Subscriber struct {
	opts    Options
	primary *conn.Connection
	aux     *sql.Client

	registry  *pgtype.Registry
	relations *relationCache
	sm        *stateMachine
	exec      *executor
	handler   Handler
	logger    *zap.Logger

	inStream bool

	flushMu      sync.Mutex
	unflushedLSN protocol.LSN
	hasUnflushed bool
	flushedLSN   protocol.LSN

	group      *errgroup.Group
	groupCtx   context.Context
	cancel     context.CancelFunc
	stopCh     chan struct{}
	readerDone chan struct{}

	closeOnce sync.Once
	resultMu  sync.Mutex
	result    error
	resultSet bool
	doneCh    chan struct{}
}

// Connect performs the full §4.6 startup sequence: dial and authenticate
// the primary replication connection, dial and authenticate the
// auxiliary SQL connection, issue START_REPLICATION, and start the
// reader/flusher/executor goroutines. handler is invoked for every
// decoded Event.
func Connect(ctx context.Context, opts Options, handler Handler) (*Subscriber, error) {
	opts = opts.withDefaults()
	if handler == nil {
		return nil, errkind.Incorrectf(fmt.Errorf("replication: handler must not be nil"))
	}
	if opts.SlotName == "" {
		return nil, errkind.Incorrectf(fmt.Errorf("replication: SlotName is required"))
	}

	primary, err := dialReplication(ctx, opts)
	if err != nil {
		return nil, err
	}

	aux, err := sql.Connect(ctx, sql.Config{
		Addr:      opts.Addr,
		User:      opts.User,
		Password:  opts.Password,
		Database:  opts.Database,
		TLSConfig: opts.TLSConfig,
	}, sql.WithLogger(opts.Logger))
	if err != nil {
		_ = primary.Close()
		return nil, err
	}

	if err := startReplication(ctx, primary, opts); err != nil {
		_ = primary.Close()
		_ = aux.Close()
		return nil, err
	}

	registry := aux.Registry()
	relations := newRelationCache(opts.KeyFunc)

	s := &Subscriber{
		opts:       opts,
		primary:    primary,
		aux:        aux,
		registry:   registry,
		relations:  relations,
		sm:         newStateMachine(relations, registry, aux),
		exec:       newExecutor(opts.QueueSize, opts.SubmitTimeout),
		handler:    handler,
		logger:     opts.Logger,
		stopCh:     make(chan struct{}),
		readerDone: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	// runCtx is cancelled explicitly by Close/cancel below; groupCtx,
	// derived from it, ends with it and is also cancelled by errgroup as
	// soon as a group member returns an error. Cancelling runCtx does not
	// wait on the group first, which is what lets the unblock-reader
	// goroutine below actually run during a graceful Close.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	s.group = group
	s.groupCtx = groupCtx

	group.Go(func() error {
		defer close(s.readerDone)
		return s.readLoop(groupCtx)
	})
	group.Go(func() error { return s.flushLoop(groupCtx) })
	group.Go(func() error { s.exec.run(groupCtx); return s.exec.failure() })
	// A blocked ReadFrame doesn't observe context cancellation on its own.
	// Force it to return, without closing the socket, whenever the group
	// context ends - whether that's a handler failure elsewhere in the
	// group or Close cancelling it - so the reader always gets a chance
	// to exit and close readerDone.
	group.Go(func() error {
		<-groupCtx.Done()
		_ = s.primary.SetReadDeadline(time.Now())
		return nil
	})

	go s.waitAndFinish()

	return s, nil
}

// dialReplication opens and authenticates the primary connection in
// replication mode "database" (§4.6 step 1).
func dialReplication(ctx context.Context, opts Options) (*conn.Connection, error) {
	c, err := conn.Dial(ctx, opts.Addr, conn.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}

	if err := c.Secure(ctx, opts.TLSConfig); err != nil {
		_ = c.Close()
		return nil, err
	}

	params := conn.StartupParams{
		User:        opts.User,
		Database:    opts.Database,
		Replication: "database",
	}
	if err := c.Startup(ctx, params, opts.Password); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// startReplication issues START_REPLICATION on the simple-query protocol
// and confirms the server switched the connection into CopyBoth mode
// (§4.6 step 3).
func startReplication(ctx context.Context, c *conn.Connection, opts Options) error {
	c.Lock()
	defer c.Unlock()

	cmd := buildStartReplicationCommand(opts)
	if err := protocol.WriteQuery(c.Writer(), cmd); err != nil {
		return errkind.Unavailablef(fmt.Errorf("replication: write START_REPLICATION: %w", err))
	}

	for {
		tag, err := c.Reader().ReadFrame()
		if err != nil {
			return errkind.Unavailablef(fmt.Errorf("replication: read START_REPLICATION response: %w", err))
		}

		switch protocol.BackendTag(tag) {
		case protocol.BackendCopyBothResponse:
			if _, err := protocol.DecodeCopyResponse(c.Reader()); err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode CopyBothResponse: %w", err))
			}
			return nil

		case protocol.BackendNoticeResponse:
			se, err := protocol.DecodeErrorFields(c.Reader())
			if err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode notice response: %w", err))
			}
			opts.Logger.Info("server notice", zapFields(se)...)

		case protocol.BackendErrorResponse:
			se, err := protocol.DecodeErrorFields(c.Reader())
			if err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode error response: %w", err))
			}
			return se

		default:
			return errkind.Faultf(fmt.Errorf("replication: unexpected message %q starting replication", tag))
		}
	}
}

// buildStartReplicationCommand renders the command string of §4.6 step 3.
func buildStartReplicationCommand(opts Options) string {
	var b strings.Builder
	b.WriteString(`START_REPLICATION SLOT "`)
	b.WriteString(opts.SlotName)
	b.WriteString(`" LOGICAL `)
	b.WriteString(opts.StartLSN.String())
	b.WriteString(" (proto_version '")
	b.WriteString(strconv.Itoa(opts.ProtocolVersion))
	b.WriteString("', publication_names '")
	b.WriteString(strings.Join(opts.PublicationNames, ","))
	b.WriteString("', streaming '")
	b.WriteString(string(opts.Streaming))
	b.WriteString("', binary 'true', messages '")
	b.WriteString(strconv.FormatBool(opts.Messages))
	b.WriteString("')")
	return b.String()
}

// Await blocks until the subscriber stops, either because Close was
// called (returns nil) or because a terminal condition of §4.6 occurred
// (returns the stored error).
func (s *Subscriber) Await() error {
	<-s.doneCh
	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	return s.result
}

// IsDone reports whether the subscriber has stopped, without blocking.
func (s *Subscriber) IsDone() bool {
	select {
	case <-s.doneCh:
		return true
	default:
		return false
	}
}

// waitAndFinish joins the reader/flusher/executor goroutines and
// publishes their outcome to Await, exactly once.
func (s *Subscriber) waitAndFinish() {
	err := s.group.Wait()
	s.resultMu.Lock()
	if !s.resultSet {
		s.result = err
		s.resultSet = true
	}
	s.resultMu.Unlock()
	close(s.doneCh)
}

// Close stops the subscriber: stops the reader and the flusher, drains
// the executor so no in-flight handler's Ack() is lost, forces one final
// flush, then tears down both connections. Idempotent; safe to call from any
// goroutine, including a handler (§4.6, §9's close ladder).
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		// Mark the shutdown as intentional before touching the reader,
		// so its ReadFrame error - provoked below - is recognized as a
		// clean stop rather than a genuine wire failure.
		close(s.stopCh)

		// Unblock the reader without closing the connection: the final
		// flush below still needs to write on it.
		_ = s.primary.SetReadDeadline(time.Now())
		<-s.readerDone

		// The reader has fully exited and can no longer be submitting to
		// the executor's queue, so draining it here can't race a
		// send on a closed channel.
		s.exec.drain()

		if err := s.flushOnce(); err != nil {
			s.logger.Warn("replication: final flush failed", zap.Error(err))
		}

		s.resultMu.Lock()
		if !s.resultSet {
			s.result = nil
			s.resultSet = true
		}
		s.resultMu.Unlock()

		if err := s.primary.Close(); err != nil {
			s.logger.Warn("replication: closing primary connection", zap.Error(err))
		}
		if err := s.aux.Close(); err != nil {
			s.logger.Warn("replication: closing auxiliary connection", zap.Error(err))
		}

		// Release the flush loop and unblock-reader goroutines last, so
		// waitAndFinish's group.Wait() completes only after everything
		// above has run.
		s.cancel()
	})

	<-s.doneCh
	return nil
}
