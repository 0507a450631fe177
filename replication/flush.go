package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// ack raises unflushed-lsn to max(unflushed-lsn, lsn), per §4.6's
// handler-dispatch ack() semantics. It never blocks and never touches
// the wire; the flusher goroutine picks the new watermark up on its next
// tick.
func (s *Subscriber) ack(lsn protocol.LSN) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if !s.hasUnflushed || lsn > s.unflushedLSN {
		s.unflushedLSN = lsn
		s.hasUnflushed = true
	}
}

// flushLoop sends a StandbyStatusUpdate every AckInterval until stopCh
// closes or ctx is cancelled, per §4.6's LSN flusher.
func (s *Subscriber) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.AckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if err := s.flushOnce(); err != nil {
				return err
			}
		}
	}
}

// flushOnce performs one flush cycle under the flush lock: read the
// watermark, write StandbyStatusUpdate, then commit the new flushed-lsn.
func (s *Subscriber) flushOnce() error {
	s.flushMu.Lock()
	lsn := s.flushedLSN
	if s.hasUnflushed {
		lsn = s.unflushedLSN
	}
	s.flushMu.Unlock()

	if err := s.sendStandbyStatusUpdate(lsn, false); err != nil {
		return err
	}

	s.flushMu.Lock()
	s.flushedLSN = lsn
	s.hasUnflushed = false
	s.flushMu.Unlock()

	return nil
}

// sendStandbyStatusUpdate writes one StandbyStatusUpdate on the primary
// connection, holding only the connection's write lock - never paired
// with a read, since the reader loop is the connection's sole reader
// for the lifetime of the replication stream (§4.6, §9).
func (s *Subscriber) sendStandbyStatusUpdate(lsn protocol.LSN, replyRequested bool) error {
	s.primary.Lock()
	defer s.primary.Unlock()

	payload := protocol.EncodeStandbyStatusUpdate(lsn, lsn, lsn, time.Now(), replyRequested)
	if err := protocol.WriteCopyData(s.primary.Writer(), payload); err != nil {
		return errkind.Unavailablef(fmt.Errorf("replication: write standby status update: %w", err))
	}
	return nil
}
