package sql

import "github.com/relaywire/pgreplicate/protocol"

// Row is one decoded DataRow, kept positional (matching Columns) rather
// than as a name-keyed map: unlike replication tuples (§9's "omit NULL
// columns from the row mapping"), a SQL result's column set never
// varies row to row, so a slice loses nothing and avoids an allocation
// per row.
type Row struct {
	Values []any
}

// Result is the outcome of one query within a Simple or Extended call.
type Result struct {
	Columns []protocol.Attribute
	Rows    []Row
	Tag     protocol.CommandTag
	// Suspended is true when the portal was suspended by a row limit
	// rather than completed - never the case for this client, which
	// always requests Execute with maxRows=0, but kept for completeness
	// of the state machine in §4.5.
	Suspended bool
	// Empty is true for EmptyQueryResponse (the query string was empty).
	Empty bool
}
