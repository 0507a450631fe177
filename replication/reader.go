package replication

import (
	"context"
	"fmt"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// readLoop is the subscriber's single reader task (§4.6): it owns all
// reads off the primary connection for the lifetime of the replication
// stream, so no lock is needed around ReadFrame itself - only the
// occasional inline write (a keepalive reply) takes the connection's
// write lock, via sendStandbyStatusUpdate.
func (s *Subscriber) readLoop(ctx context.Context) error {
	r := s.primary.Reader()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		tag, err := r.ReadFrame()
		if err != nil {
			select {
			case <-s.stopCh:
				return nil
			default:
			}
			return errkind.Unavailablef(fmt.Errorf("replication: read from primary connection: %w", err))
		}

		switch protocol.BackendTag(tag) {
		case protocol.BackendCopyData:
			cd, err := protocol.DecodeCopyData(r)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode CopyData: %w", err))
			}
			if err := s.handleCopyData(ctx, cd.Data); err != nil {
				return err
			}

		case protocol.BackendNoticeResponse:
			se, err := protocol.DecodeErrorFields(r)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode notice response: %w", err))
			}
			s.logger.Info("server notice", zapFields(se)...)

		case protocol.BackendParameterStatus:
			if _, err := protocol.DecodeParameterStatus(r); err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode parameter status: %w", err))
			}

		case protocol.BackendErrorResponse:
			se, err := protocol.DecodeErrorFields(r)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("replication: decode error response: %w", err))
			}
			return se

		case protocol.BackendCopyDone:
			return nil

		default:
			return errkind.Faultf(fmt.Errorf("replication: unexpected message %q during replication", tag))
		}
	}
}

// handleCopyData classifies one CopyData payload as XLogData or a
// primary keepalive and acts on it (§4.6's reader-loop bullet list).
func (s *Subscriber) handleCopyData(ctx context.Context, payload []byte) error {
	msg, err := protocol.DecodeReplicationMessage(payload)
	if err != nil {
		return errkind.Faultf(fmt.Errorf("replication: %w", err))
	}

	switch m := msg.(type) {
	case *protocol.PrimaryKeepalive:
		if m.ReplyRequested {
			s.flushMu.Lock()
			lsn := s.flushedLSN
			if s.hasUnflushed {
				lsn = s.unflushedLSN
			}
			s.flushMu.Unlock()

			if err := s.sendStandbyStatusUpdate(lsn, false); err != nil {
				return err
			}
		}
		return nil

	case *protocol.XLogData:
		return s.handleXLogData(ctx, m)

	default:
		return errkind.Faultf(fmt.Errorf("replication: unrecognized replication submessage %T", msg))
	}
}

// handleXLogData decodes one pgoutput sub-message and submits its
// derived Event to the handler executor.
func (s *Subscriber) handleXLogData(ctx context.Context, xld *protocol.XLogData) error {
	decodeCtx := protocol.DecodeContext{
		InStream:        s.inStream,
		Streaming:       s.opts.Streaming,
		ProtocolVersion: s.opts.ProtocolVersion,
	}

	walMsg, err := protocol.DecodePgoutput(xld.Data, decodeCtx)
	if err != nil {
		return errkind.Faultf(fmt.Errorf("replication: decode pgoutput message: %w", err))
	}

	switch walMsg.(type) {
	case protocol.StreamStartMessage:
		s.inStream = true
	case protocol.StreamStopMessage:
		s.inStream = false
	}

	ev, err := s.sm.handle(walMsg, xld.WALStart, s.ack)
	if err != nil {
		return errkind.Faultf(fmt.Errorf("replication: %w", err))
	}

	handler := s.handler
	return s.exec.submit(ctx, func(context.Context) error {
		return handler(ev)
	})
}
