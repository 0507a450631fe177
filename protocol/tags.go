// Package protocol implements the pure, stateless translation between
// wire frames and tagged message records (C3): the frontend/backend
// message catalog, the pgoutput logical-decoding sub-messages, LSN
// textual form, and the ErrorResponse/NoticeResponse field mapping.
package protocol

// FrontendTag identifies a message the client sends to the backend.
type FrontendTag byte

// BackendTag identifies a message the backend sends to the client.
type BackendTag byte

// http://www.postgresql.org/docs/current/static/protocol-message-formats.html
const (
	FrontendPassword          FrontendTag = 'p' // also SASLInitialResponse/SASLResponse/GSSResponse
	FrontendQuery             FrontendTag = 'Q'
	FrontendParse             FrontendTag = 'P'
	FrontendBind              FrontendTag = 'B'
	FrontendDescribe          FrontendTag = 'D'
	FrontendExecute           FrontendTag = 'E'
	FrontendSync              FrontendTag = 'S'
	FrontendFlush             FrontendTag = 'H'
	FrontendClose             FrontendTag = 'C'
	FrontendCopyData          FrontendTag = 'd'
	FrontendCopyDone          FrontendTag = 'c'
	FrontendCopyFail          FrontendTag = 'f'
	FrontendTerminate         FrontendTag = 'X'
)

const (
	BackendAuth                 BackendTag = 'R'
	BackendParameterStatus      BackendTag = 'S'
	BackendBackendKeyData       BackendTag = 'K'
	BackendReadyForQuery        BackendTag = 'Z'
	BackendRowDescription       BackendTag = 'T'
	BackendDataRow              BackendTag = 'D'
	BackendCommandComplete      BackendTag = 'C'
	BackendEmptyQueryResponse   BackendTag = 'I'
	BackendParseComplete        BackendTag = '1'
	BackendBindComplete         BackendTag = '2'
	BackendCloseComplete        BackendTag = '3'
	BackendParameterDescription BackendTag = 't'
	BackendNoData               BackendTag = 'n'
	BackendPortalSuspended      BackendTag = 's'
	BackendErrorResponse        BackendTag = 'E'
	BackendNoticeResponse       BackendTag = 'N'
	BackendCopyInResponse       BackendTag = 'G'
	BackendCopyOutResponse      BackendTag = 'H'
	BackendCopyBothResponse     BackendTag = 'W'
	BackendCopyData             BackendTag = 'd'
	BackendCopyDone             BackendTag = 'c'
	BackendNotificationResponse BackendTag = 'A'
)

// DescribeTarget selects between describing a portal or a statement.
type DescribeTarget byte

const (
	DescribePortal    DescribeTarget = 'P'
	DescribeStatement DescribeTarget = 'S'
)

// AuthSubType is the int32 code embedded in the first four bytes of an
// AuthenticationXXX message body.
type AuthSubType int32

const (
	AuthOK                AuthSubType = 0
	AuthCleartextPassword AuthSubType = 3
	AuthMD5Password       AuthSubType = 5
	AuthSASL              AuthSubType = 10
	AuthSASLContinue      AuthSubType = 11
	AuthSASLFinal         AuthSubType = 12
	AuthGSS               AuthSubType = 7
	AuthGSSContinue       AuthSubType = 8
	AuthSSPI              AuthSubType = 9
)

// StartupVersion is the protocol version number sent in the first
// StartupMessage/SSLRequest/CancelRequest.
type StartupVersion uint32

const (
	// ProtocolVersion is the frontend/backend protocol version this
	// client speaks (3.0).
	ProtocolVersion StartupVersion = 3<<16 | 0
	// SSLRequestCode is the magic version number that requests a TLS
	// upgrade instead of starting a session.
	SSLRequestCode StartupVersion = 80877103
	// CancelRequestCode is the magic version number of a CancelRequest.
	CancelRequestCode StartupVersion = 80877102
)

func (t FrontendTag) String() string {
	switch t {
	case FrontendPassword:
		return "Password"
	case FrontendQuery:
		return "Query"
	case FrontendParse:
		return "Parse"
	case FrontendBind:
		return "Bind"
	case FrontendDescribe:
		return "Describe"
	case FrontendExecute:
		return "Execute"
	case FrontendSync:
		return "Sync"
	case FrontendFlush:
		return "Flush"
	case FrontendClose:
		return "Close"
	case FrontendCopyData:
		return "CopyData"
	case FrontendCopyDone:
		return "CopyDone"
	case FrontendCopyFail:
		return "CopyFail"
	case FrontendTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

func (t BackendTag) String() string {
	switch t {
	case BackendAuth:
		return "Auth"
	case BackendParameterStatus:
		return "ParameterStatus"
	case BackendBackendKeyData:
		return "BackendKeyData"
	case BackendReadyForQuery:
		return "ReadyForQuery"
	case BackendRowDescription:
		return "RowDescription"
	case BackendDataRow:
		return "DataRow"
	case BackendCommandComplete:
		return "CommandComplete"
	case BackendEmptyQueryResponse:
		return "EmptyQueryResponse"
	case BackendParseComplete:
		return "ParseComplete"
	case BackendBindComplete:
		return "BindComplete"
	case BackendCloseComplete:
		return "CloseComplete"
	case BackendParameterDescription:
		return "ParameterDescription"
	case BackendNoData:
		return "NoData"
	case BackendPortalSuspended:
		return "PortalSuspended"
	case BackendErrorResponse:
		return "ErrorResponse"
	case BackendNoticeResponse:
		return "NoticeResponse"
	case BackendCopyInResponse:
		return "CopyInResponse"
	case BackendCopyOutResponse:
		return "CopyOutResponse"
	case BackendCopyBothResponse:
		return "CopyBothResponse"
	case BackendNotificationResponse:
		return "NotificationResponse"
	default:
		return "Unknown"
	}
}
