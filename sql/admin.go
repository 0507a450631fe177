package sql

import (
	"context"
	"fmt"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/pgtype"
	"github.com/relaywire/pgreplicate/protocol"
)

// SlotInfo is the row CREATE_REPLICATION_SLOT returns.
type SlotInfo struct {
	SlotName        string
	ConsistentPoint protocol.LSN
	SnapshotName    string
	OutputPlugin    string
}

// CreateReplicationSlot issues CREATE_REPLICATION_SLOT for a logical
// slot using the pgoutput plugin, per §6.4/§6.1.
func (c *Client) CreateReplicationSlot(ctx context.Context, name string, temporary bool) (SlotInfo, error) {
	query := fmt.Sprintf("CREATE_REPLICATION_SLOT %s ", quoteIdent(name))
	if temporary {
		query += "TEMPORARY "
	}
	query += "LOGICAL pgoutput"

	res, err := c.Simple(ctx, query)
	if err != nil {
		return SlotInfo{}, err
	}
	if len(res.Rows) != 1 || len(res.Rows[0].Values) < 4 {
		return SlotInfo{}, errkind.Faultf(fmt.Errorf("sql: unexpected CREATE_REPLICATION_SLOT response shape"))
	}

	row := res.Rows[0].Values
	lsn, err := protocol.ParseLSN(asString(row[1]))
	if err != nil {
		return SlotInfo{}, errkind.Faultf(fmt.Errorf("sql: parse consistent_point: %w", err))
	}

	return SlotInfo{
		SlotName:        asString(row[0]),
		ConsistentPoint: lsn,
		SnapshotName:    asString(row[2]),
		OutputPlugin:    asString(row[3]),
	}, nil
}

// DropReplicationSlot issues DROP_REPLICATION_SLOT.
func (c *Client) DropReplicationSlot(ctx context.Context, name string) error {
	_, err := c.Simple(ctx, fmt.Sprintf("DROP_REPLICATION_SLOT %s", quoteIdent(name)))
	return err
}

// EmitMessage calls pg_logical_emit_message(transactional, prefix,
// content, flush) and returns the LSN the server assigned it, per
// §6.4's `emit_message(client, prefix, content, {transactional?,
// flush?})` and S3. flush forces the server to fsync the message's WAL
// record before returning, rather than waiting for the next regular
// flush.
func (c *Client) EmitMessage(ctx context.Context, prefix string, content []byte, transactional, flush bool) (protocol.LSN, error) {
	results, err := c.Extended(ctx, QuerySpec{
		SQL:    "SELECT pg_logical_emit_message($1, $2, $3, $4)",
		Params: []any{transactional, prefix, content, flush},
	})
	if err != nil {
		return 0, err
	}
	if len(results) != 1 || len(results[0].Rows) != 1 {
		return 0, errkind.Faultf(fmt.Errorf("sql: unexpected pg_logical_emit_message response shape"))
	}

	lsn, ok := results[0].Rows[0].Values[0].(pgtype.PgLSN)
	if !ok {
		return 0, errkind.Faultf(fmt.Errorf("sql: pg_logical_emit_message did not return a pg_lsn"))
	}
	return protocol.LSN(lsn), nil
}

// IgnoringDupes runs body and swallows a duplicate_object (42710) server
// error, per §6.4 - used to make CREATE PUBLICATION / CREATE_REPLICATION_SLOT
// idempotent across restarts.
func IgnoringDupes(body func() error) error {
	err := body()
	if err == nil {
		return nil
	}
	if errkind.IsDuplicateObject(err) {
		return nil
	}
	return err
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
