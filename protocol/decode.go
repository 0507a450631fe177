package protocol

import (
	"fmt"

	"github.com/relaywire/pgreplicate/buffer"
	"github.com/relaywire/pgreplicate/codes"
	"github.com/relaywire/pgreplicate/errkind"
)

// ReadVersion reads the uint32 startup/SSLRequest/CancelRequest version
// code out of an already-length-delimited body (the untagged framing
// read by buffer.Reader.ReadBody).
func ReadVersion(r *buffer.Reader) (StartupVersion, error) {
	v, err := r.GetUint32()
	return StartupVersion(v), err
}

// DecodeAuthRequest decodes an AuthenticationXXX message body.
func DecodeAuthRequest(r *buffer.Reader) (*AuthRequest, error) {
	sub, err := r.GetInt32()
	if err != nil {
		return nil, err
	}

	return &AuthRequest{SubType: AuthSubType(sub), Data: append([]byte(nil), r.Remaining()...)}, nil
}

// DecodeParameterStatus decodes a ParameterStatus message body.
func DecodeParameterStatus(r *buffer.Reader) (*ParameterStatus, error) {
	name, err := r.GetString()
	if err != nil {
		return nil, err
	}

	value, err := r.GetString()
	if err != nil {
		return nil, err
	}

	return &ParameterStatus{Name: name, Value: value}, nil
}

// DecodeBackendKeyData decodes a BackendKeyData message body.
func DecodeBackendKeyData(r *buffer.Reader) (*BackendKeyData, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return nil, err
	}

	secret, err := r.GetInt32()
	if err != nil {
		return nil, err
	}

	return &BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}

// DecodeReadyForQuery decodes a ReadyForQuery message body.
func DecodeReadyForQuery(r *buffer.Reader) (*ReadyForQuery, error) {
	b, err := r.GetByte()
	if err != nil {
		return nil, err
	}

	return &ReadyForQuery{Status: TransactionStatus(b)}, nil
}

// DecodeRowDescription decodes a RowDescription message body.
func DecodeRowDescription(r *buffer.Reader) (*RowDescription, error) {
	n, err := r.GetInt16()
	if err != nil {
		return nil, err
	}

	fields := make([]Attribute, n)
	for i := range fields {
		name, err := r.GetString()
		if err != nil {
			return nil, err
		}

		tableOID, err := r.GetUint32()
		if err != nil {
			return nil, err
		}

		attrNo, err := r.GetInt16()
		if err != nil {
			return nil, err
		}

		typeOID, err := r.GetUint32()
		if err != nil {
			return nil, err
		}

		width, err := r.GetInt16()
		if err != nil {
			return nil, err
		}

		typeMod, err := r.GetInt32()
		if err != nil {
			return nil, err
		}

		format, err := r.GetInt16()
		if err != nil {
			return nil, err
		}

		_ = width
		fields[i] = Attribute{
			Name:         name,
			TableOID:     tableOID,
			Number:       attrNo,
			TypeOID:      typeOID,
			TypeModifier: typeMod,
			Format:       FormatCode(format),
		}
	}

	return &RowDescription{Fields: fields}, nil
}

// DecodeDataRow decodes a DataRow message body.
func DecodeDataRow(r *buffer.Reader) (*DataRow, error) {
	n, err := r.GetInt16()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, n)
	for i := range values {
		length, err := r.GetInt32()
		if err != nil {
			return nil, err
		}

		v, err := r.GetBytes(int(length))
		if err != nil {
			return nil, err
		}

		if length >= 0 {
			values[i] = append([]byte{}, v...)
		}
	}

	return &DataRow{Values: values}, nil
}

// DecodeCommandComplete decodes a CommandComplete message body and parses
// its tag per the rules of §4.5.
func DecodeCommandComplete(r *buffer.Reader) (*CommandComplete, error) {
	tag, err := r.GetString()
	if err != nil {
		return nil, err
	}

	return &CommandComplete{Tag: tag, Parts: ParseCommandTag(tag)}, nil
}

// ParseCommandTag applies the CommandComplete parsing rules of §4.5:
// "INSERT 0 N", "UPDATE N", "DELETE N", "MERGE N", "SELECT N", "MOVE N",
// "FETCH N", "COPY N", else {Command: tag}.
func ParseCommandTag(tag string) CommandTag {
	var command string
	var oid, rows int64
	n, _ := fmt.Sscanf(tag, "%s %d %d", &command, &oid, &rows)
	if n == 3 && command == "INSERT" {
		return CommandTag{Command: command, Rows: rows}
	}

	n, _ = fmt.Sscanf(tag, "%s %d", &command, &rows)
	switch command {
	case "UPDATE", "DELETE", "MERGE", "SELECT", "MOVE", "FETCH", "COPY":
		if n == 2 {
			return CommandTag{Command: command, Rows: rows}
		}
	}

	return CommandTag{Command: tag}
}

// DecodeParameterDescription decodes a ParameterDescription message body.
func DecodeParameterDescription(r *buffer.Reader) (*ParameterDescription, error) {
	n, err := r.GetInt16()
	if err != nil {
		return nil, err
	}

	oids := make([]uint32, n)
	for i := range oids {
		oids[i], err = r.GetUint32()
		if err != nil {
			return nil, err
		}
	}

	return &ParameterDescription{OIDs: oids}, nil
}

// DecodeCopyResponse decodes CopyInResponse/CopyOutResponse/CopyBothResponse.
func DecodeCopyResponse(r *buffer.Reader) (*CopyResponse, error) {
	overall, err := r.GetByte()
	if err != nil {
		return nil, err
	}

	n, err := r.GetInt16()
	if err != nil {
		return nil, err
	}

	cols := make([]FormatCode, n)
	for i := range cols {
		f, err := r.GetInt16()
		if err != nil {
			return nil, err
		}
		cols[i] = FormatCode(f)
	}

	return &CopyResponse{OverallFormat: FormatCode(overall), ColumnFormats: cols}, nil
}

// DecodeCopyData decodes a CopyData message body.
func DecodeCopyData(r *buffer.Reader) (*CopyData, error) {
	return &CopyData{Data: append([]byte(nil), r.Remaining()...)}, nil
}

// DecodeNotificationResponse decodes a NotificationResponse message body.
func DecodeNotificationResponse(r *buffer.Reader) (*NotificationResponse, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return nil, err
	}

	channel, err := r.GetString()
	if err != nil {
		return nil, err
	}

	payload, err := r.GetString()
	if err != nil {
		return nil, err
	}

	return &NotificationResponse{BackendPID: pid, Channel: channel, Payload: payload}, nil
}

// errField tags identify the semantic meaning of each field in an
// ErrorResponse/NoticeResponse body.
// https://www.postgresql.org/docs/current/protocol-error-fields.html
const (
	errFieldSeverity      byte = 'S'
	errFieldSeverityV     byte = 'V'
	errFieldCode          byte = 'C'
	errFieldMessage       byte = 'M'
	errFieldDetail        byte = 'D'
	errFieldHint          byte = 'H'
	errFieldPosition      byte = 'P'
	errFieldSchema        byte = 's'
	errFieldTable         byte = 't'
	errFieldColumn        byte = 'c'
	errFieldDataType      byte = 'd'
	errFieldConstraint    byte = 'n'
	errFieldFile          byte = 'F'
	errFieldLine          byte = 'L'
	errFieldRoutine       byte = 'R'
)

// DecodeErrorFields decodes the field-value pairs shared by ErrorResponse
// and NoticeResponse into the semantic mapping of §4.3.
func DecodeErrorFields(r *buffer.Reader) (*errkind.ServerError, error) {
	se := &errkind.ServerError{}

	for {
		field, err := r.GetByte()
		if err != nil {
			return nil, err
		}

		if field == 0 {
			break
		}

		value, err := r.GetString()
		if err != nil {
			return nil, err
		}

		switch field {
		case errFieldSeverity:
			se.Severity = value
		case errFieldSeverityV:
			if se.Severity == "" {
				se.Severity = value
			}
		case errFieldCode:
			se.Code = codes.Code(value)
		case errFieldMessage:
			se.Message = value
		case errFieldDetail:
			se.Detail = value
		case errFieldHint:
			se.Hint = value
		case errFieldPosition:
			se.Position = value
		case errFieldSchema:
			se.Schema = value
		case errFieldTable:
			se.Table = value
		case errFieldColumn:
			se.Column = value
		case errFieldDataType:
			se.DataType = value
		case errFieldConstraint:
			se.Constraint = value
		case errFieldFile:
			se.File = value
		case errFieldLine:
			se.Line = value
		case errFieldRoutine:
			se.Routine = value
		}
	}

	return se, nil
}
