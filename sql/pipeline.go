package sql

import (
	"context"
	"fmt"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// QuerySpec is one query and its positional parameters, as sent through
// Extended (`eq`), per §4.5.
type QuerySpec struct {
	SQL    string
	Params []any
}

// Extended executes specs as a single pipeline: Parse/Describe/Bind/
// Execute for each, one Sync at the end. An error on any query aborts
// the remainder of the pipeline and the whole call fails - already
// produced results are discarded, matching the "pipeline short-circuit"
// property of §8.
func (c *Client) Extended(ctx context.Context, specs ...QuerySpec) ([]*Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	// Parameter encoding happens before any frame is written (§4.5, §9):
	// an Incorrect failure here never touches wire state.
	enc := make([]encodedParams, len(specs))
	for i, spec := range specs {
		oids, values, err := c.encodeParams(spec.Params)
		if err != nil {
			return nil, err
		}
		enc[i] = encodedParams{oids: oids, values: values}
	}

	raw, err := c.doExtended(ctx, specs, enc)
	if err != nil {
		return nil, c.fail(err)
	}

	results := make([]*Result, len(raw))
	for i, r := range raw {
		res, err := c.decodeResult(r)
		if err != nil {
			return nil, c.fail(errkind.WithKind(err, errkind.Fault))
		}
		results[i] = res
	}

	return results, nil
}

// encodedParams holds a query's pre-encoded parameter OIDs and bytes.
type encodedParams struct {
	oids   []uint32
	values [][]byte
}

func (c *Client) doExtended(ctx context.Context, specs []QuerySpec, enc []encodedParams) ([]*rawResult, error) {
	c.conn.Lock()
	defer c.conn.Unlock()

	w := c.conn.Writer()
	r := c.conn.Reader()

	for i, spec := range specs {
		if err := protocol.WriteParse(w, "", spec.SQL, enc[i].oids); err != nil {
			return nil, errkind.Unavailablef(fmt.Errorf("sql: write parse: %w", err))
		}
		if err := protocol.WriteDescribe(w, protocol.DescribeStatement, ""); err != nil {
			return nil, errkind.Unavailablef(fmt.Errorf("sql: write describe: %w", err))
		}
		if err := protocol.WriteBind(w, "", "", enc[i].values); err != nil {
			return nil, errkind.Unavailablef(fmt.Errorf("sql: write bind: %w", err))
		}
		if err := protocol.WriteExecute(w, "", 0); err != nil {
			return nil, errkind.Unavailablef(fmt.Errorf("sql: write execute: %w", err))
		}
	}
	if err := protocol.WriteSync(w); err != nil {
		return nil, errkind.Unavailablef(fmt.Errorf("sql: write sync: %w", err))
	}

	var (
		results    []*rawResult
		current    = &rawResult{}
		pendingErr error
	)

	finalize := func() {
		results = append(results, current)
		current = &rawResult{}
	}

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
		case protocol.BackendParseComplete, protocol.BackendBindComplete, protocol.BackendNoData:
			// no payload

		case protocol.BackendParameterDescription:
			if _, err := protocol.DecodeParameterDescription(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode parameter description: %w", err))
			}

		case protocol.BackendRowDescription:
			rd, err := protocol.DecodeRowDescription(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode row description: %w", err))
			}
			current.columns = rd.Fields

		case protocol.BackendDataRow:
			dr, err := protocol.DecodeDataRow(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode data row: %w", err))
			}
			current.rows = append(current.rows, dr.Values)

		case protocol.BackendCommandComplete:
			cc, err := protocol.DecodeCommandComplete(r)
			if err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode command complete: %w", err))
			}
			current.tag = cc.Parts
			finalize()

		case protocol.BackendEmptyQueryResponse:
			current.empty = true
			finalize()

		case protocol.BackendPortalSuspended:
			current.suspended = true
			finalize()

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
			// the server discards remaining pipelined messages up to the
			// next Sync; keep reading until ReadyForQuery.

		case protocol.BackendReadyForQuery:
			if _, err := protocol.DecodeReadyForQuery(r); err != nil {
				return nil, errkind.Faultf(fmt.Errorf("sql: decode ready-for-query: %w", err))
			}
			if pendingErr != nil {
				return nil, pendingErr
			}
			return results, nil

		default:
			return nil, errkind.Faultf(fmt.Errorf("sql: unexpected message %q during pipeline", tag))
		}
	}
}
