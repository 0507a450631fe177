package sql

import (
	"context"
	"fmt"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// rawResult mirrors Result but keeps DataRow values undecoded, so
// decoding (which may need to resolve an unknown OID through a second
// query on the same connection) can happen after the connection lock is
// released, per §4.2's UnknownDataType recovery.
type rawResult struct {
	columns   []protocol.Attribute
	rows      [][][]byte
	tag       protocol.CommandTag
	empty     bool
	suspended bool
}

// Simple executes query with the simple query protocol (`sq`), per
// §4.5. Only one statement's worth of results is expected back; a
// multi-statement query string (semicolon-separated) is not supported by
// this client and its later results are simply appended to Rows using
// the last-seen RowDescription, matching how the wire protocol itself
// reports them.
func (c *Client) Simple(ctx context.Context, query string) (*Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	raw, err := c.doSimple(ctx, query)
	if err != nil {
		return nil, c.fail(err)
	}

	result, err := c.decodeResult(raw)
	if err != nil {
		return nil, c.fail(errkind.WithKind(err, errkind.Fault))
	}

	return result, nil
}

func (c *Client) doSimple(ctx context.Context, query string) (*rawResult, error) {
	c.conn.Lock()
	defer c.conn.Unlock()

	w := c.conn.Writer()
	r := c.conn.Reader()

	if err := protocol.WriteQuery(w, query); err != nil {
		return nil, errkind.Unavailablef(fmt.Errorf("sql: write query: %w", err))
	}

	res := &rawResult{}
	var pendingErr error

	for {
		select {
		case <-ctx.Done():
			return nil, errkind.Unavailablef(ctx.Err())
		default:
		}

		tag, err := r.ReadFrame()
		if err != nil {
			return nil, errkind.Unavailablef(fmt.Errorf("sql: read response: %w", err))
		}

		switch protocol.BackendTag(tag) {
		case protocol.BackendRowDescription:
			rd, err := protocol.DecodeRowDescription(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode row description: %w", err))
			}
			res.columns = rd.Fields

		case protocol.BackendDataRow:
			dr, err := protocol.DecodeDataRow(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode data row: %w", err))
			}
			res.rows = append(res.rows, dr.Values)

		case protocol.BackendCommandComplete:
			cc, err := protocol.DecodeCommandComplete(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode command complete: %w", err))
			}
			res.tag = cc.Parts

		case protocol.BackendEmptyQueryResponse:
			res.empty = true

		case protocol.BackendCopyOutResponse, protocol.BackendCopyBothResponse:
			if _, err := protocol.DecodeCopyResponse(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode copy response: %w", err))
			}

		case protocol.BackendCopyData:
			if _, err := protocol.DecodeCopyData(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode copy data: %w", err))
			}

		case protocol.BackendCopyDone:
			// nothing to do; the terminal CommandComplete still follows.

		case protocol.BackendCopyInResponse:
			// CopyIn is unsupported: decline with CopyDone, remember the
			// failure, and surface it once ReadyForQuery arrives (§4.5, §7).
			if err := protocol.WriteCopyDone(w); err != nil {
				return nil, errkind.Unavailablef(fmt.Errorf("sql: write CopyDone: %w", err))
			}
			pendingErr = errkind.Unsupportedf(fmt.Errorf("sql: CopyIn is not supported"))

		case protocol.BackendNoticeResponse:
			se, err := protocol.DecodeErrorFields(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode notice response: %w", err))
			}
			c.logger.Info("server notice", zapFields(se)...)

		case protocol.BackendParameterStatus:
			if _, err := protocol.DecodeParameterStatus(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode parameter status: %w", err))
			}

		case protocol.BackendErrorResponse:
			se, err := protocol.DecodeErrorFields(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode error response: %w", err))
			}
			pendingErr = se

		case protocol.BackendReadyForQuery:
			if _, err := protocol.DecodeReadyForQuery(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode ready-for-query: %w", err))
			}
			if pendingErr != nil {
				return nil, pendingErr
			}
			return res, nil

		default:
			return nil, errkind.Faultf(fmt.Errorf("sql: unexpected message %q during simple query", tag))
		}
	}
}

// decodeResult applies the registry to a rawResult's raw column bytes,
// resolving any unknown OID exactly once (§4.2).
func (c *Client) decodeResult(raw *rawResult) (*Result, error) {
	result := &Result{Columns: raw.columns, Tag: raw.tag, Empty: raw.empty, Suspended: raw.suspended}

	for _, rawRow := range raw.rows {
		row := Row{Values: make([]any, len(rawRow))}
		for i, v := range rawRow {
			if i >= len(raw.columns) {
				return nil, fmt.Errorf("sql: data row has more columns than the row description")
			}
			decoded, err := c.registry.DecodeValue(raw.columns[i].TypeOID, v, c)
			if err != nil {
				return nil, fmt.Errorf("sql: decode column %q: %w", raw.columns[i].Name, err)
			}
			row.Values[i] = decoded
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}
