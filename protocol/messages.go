package protocol

// TransactionStatus is the single status byte carried by ReadyForQuery.
type TransactionStatus byte

const (
	TxIdle   TransactionStatus = 'I'
	TxBlock  TransactionStatus = 'T'
	TxFailed TransactionStatus = 'E'
)

// StartupMessage is the first message the frontend sends on a plaintext
// (post-TLS-negotiation) connection: a version number followed by a set
// of key/value parameters, terminated by an empty key.
type StartupMessage struct {
	Version    StartupVersion
	Parameters map[string]string
}

// AuthRequest is any AuthenticationXXX backend message. Data carries the
// mechanism-specific payload: the list of SASL mechanisms for AuthSASL,
// the server-first-message bytes for AuthSASLContinue, "v=..." for
// AuthSASLFinal, or the MD5 salt for AuthMD5Password.
type AuthRequest struct {
	SubType AuthSubType
	Data    []byte
}

// ParameterStatus reports a single GUC value the backend chose to
// announce (server_version, client_encoding, ...).
type ParameterStatus struct {
	Name  string
	Value string
}

// BackendKeyData carries the values needed to issue a CancelRequest on a
// second connection.
type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

// ReadyForQuery marks the end of a request/response exchange.
type ReadyForQuery struct {
	Status TransactionStatus
}

// Attribute describes one column of a RowDescription, or (with the
// TableOID/Number/Flags fields populated) one column of a pgoutput
// Relation message.
type Attribute struct {
	Name         string
	TableOID     uint32
	Number       int16
	TypeOID      uint32
	TypeModifier int32
	Format       FormatCode
	Flags        AttributeFlags
}

// FormatCode selects text or binary wire encoding for a column or
// parameter.
type FormatCode int16

const (
	FormatText   FormatCode = 0
	FormatBinary FormatCode = 1
)

// AttributeFlags marks properties of a pgoutput Relation column.
type AttributeFlags uint8

// IsKey reports whether the column is part of the table's replica
// identity, per §3's attribute-definition flags set.
func (f AttributeFlags) IsKey() bool { return f&1 != 0 }

// RowDescription lists the columns of a result set.
type RowDescription struct {
	Fields []Attribute
}

// DataRow is one row of a result set. A nil element at index i means
// column i is SQL NULL; Fields[i].Format of the originating
// RowDescription says whether Values[i] holds text or binary bytes.
type DataRow struct {
	Values [][]byte
}

// CommandTag is the parsed form of a CommandComplete message, per the
// rules in §4.5: "INSERT 0 N", "UPDATE N", ... else {Command: raw tag}.
type CommandTag struct {
	Command string
	Rows    int64
}

// CommandComplete carries the raw and parsed command tag.
type CommandComplete struct {
	Tag   string
	Parts CommandTag
}

// ParameterDescription lists the parameter type OIDs of a parsed
// statement.
type ParameterDescription struct {
	OIDs []uint32
}

// CopyResponse covers CopyInResponse/CopyOutResponse/CopyBothResponse,
// which share a wire layout: an overall format byte and one format byte
// per column.
type CopyResponse struct {
	OverallFormat FormatCode
	ColumnFormats []FormatCode
}

// CopyData wraps one chunk of a COPY stream. During replication its Data
// holds either a PrimaryKeepalive or a WALData sub-message (§4.6);
// outside replication it holds raw COPY OUT bytes.
type CopyData struct {
	Data []byte
}

// NotificationResponse is a LISTEN/NOTIFY payload. The client does not
// act on it (Non-goals, §1). DecodeNotificationResponse decodes one, but
// the query and replication read loops do not accept it and fail on it
// as an unexpected message.
type NotificationResponse struct {
	BackendPID int32
	Channel    string
	Payload    string
}
