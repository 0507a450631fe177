package protocol

import (
	"sort"

	"github.com/relaywire/pgreplicate/buffer"
)

// WriteStartup writes the initial StartupMessage. It is the one frontend
// message with no leading tag byte - the length prefix comes first.
func WriteStartup(w *buffer.Writer, params map[string]string) error {
	w.StartUntagged()
	w.AddUint32(uint32(ProtocolVersion))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic wire output, easier to golden-test

	for _, k := range keys {
		w.AddCString(k)
		w.AddCString(params[k])
	}
	w.AddByte(0)

	return w.EndUntagged()
}

// WriteSSLRequest writes the special 8-byte SSLRequest message.
func WriteSSLRequest(w *buffer.Writer) error {
	buf := make([]byte, 8)
	buf[3] = 8
	putUint32(buf[4:8], uint32(SSLRequestCode))
	return w.WriteRaw(buf)
}

// WriteCancelRequest writes a CancelRequest addressed at the given
// backend key data, used to interrupt a running query on another
// connection to the same backend.
func WriteCancelRequest(w *buffer.Writer, pid, secret int32) error {
	buf := make([]byte, 16)
	putUint32(buf[0:4], 16)
	putUint32(buf[4:8], uint32(CancelRequestCode))
	putUint32(buf[8:12], uint32(pid))
	putUint32(buf[12:16], uint32(secret))
	return w.WriteRaw(buf)
}

// WritePasswordMessage writes a cleartext or MD5 PasswordMessage.
func WritePasswordMessage(w *buffer.Writer, password string) error {
	w.Start(byte(FrontendPassword))
	w.AddCString(password)
	return w.End()
}

// WriteSASLInitialResponse writes the client's first SASL message.
func WriteSASLInitialResponse(w *buffer.Writer, mechanism string, response []byte) error {
	w.Start(byte(FrontendPassword))
	w.AddCString(mechanism)
	if response == nil {
		w.AddInt32(-1)
	} else {
		w.AddInt32(int32(len(response)))
		w.AddBytes(response)
	}
	return w.End()
}

// WriteSASLResponse writes a subsequent SASL message (client-final-message).
func WriteSASLResponse(w *buffer.Writer, response []byte) error {
	w.Start(byte(FrontendPassword))
	w.AddBytes(response)
	return w.End()
}

// WriteQuery writes a simple-query message.
func WriteQuery(w *buffer.Writer, sql string) error {
	w.Start(byte(FrontendQuery))
	w.AddCString(sql)
	return w.End()
}

// WriteParse writes a Parse message binding an (optionally empty,
// meaning "unnamed") statement name to sql, with the given hint OIDs
// for its parameters. A zero OID means "server infers the type".
func WriteParse(w *buffer.Writer, statement, sql string, paramOIDs []uint32) error {
	w.Start(byte(FrontendParse))
	w.AddCString(statement)
	w.AddCString(sql)
	w.AddInt16(int16(len(paramOIDs)))
	for _, oid := range paramOIDs {
		w.AddUint32(oid)
	}
	return w.End()
}

// WriteBind writes a Bind message. params[i] == nil encodes SQL NULL.
// All parameters and results are requested in binary format, per §1
// ("the replication path uses binary only") which this client applies
// uniformly to the SQL client as well.
func WriteBind(w *buffer.Writer, portal, statement string, params [][]byte) error {
	w.Start(byte(FrontendBind))
	w.AddCString(portal)
	w.AddCString(statement)

	w.AddInt16(1)
	w.AddInt16(int16(FormatBinary))

	w.AddInt16(int16(len(params)))
	for _, p := range params {
		if p == nil {
			w.AddInt32(-1)
			continue
		}
		w.AddInt32(int32(len(p)))
		w.AddBytes(p)
	}

	w.AddInt16(1)
	w.AddInt16(int16(FormatBinary))
	return w.End()
}

// WriteDescribe writes a Describe message for a statement or portal.
func WriteDescribe(w *buffer.Writer, target DescribeTarget, name string) error {
	w.Start(byte(FrontendDescribe))
	w.AddByte(byte(target))
	w.AddCString(name)
	return w.End()
}

// WriteExecute writes an Execute message. maxRows == 0 means "no limit".
func WriteExecute(w *buffer.Writer, portal string, maxRows int32) error {
	w.Start(byte(FrontendExecute))
	w.AddCString(portal)
	w.AddInt32(maxRows)
	return w.End()
}

// WriteClose writes a Close message for a statement or portal.
func WriteClose(w *buffer.Writer, target DescribeTarget, name string) error {
	w.Start(byte(FrontendClose))
	w.AddByte(byte(target))
	w.AddCString(name)
	return w.End()
}

// WriteSync writes a Sync message.
func WriteSync(w *buffer.Writer) error {
	w.Start(byte(FrontendSync))
	return w.End()
}

// WriteFlush writes a Flush message.
func WriteFlush(w *buffer.Writer) error {
	w.Start(byte(FrontendFlush))
	return w.End()
}

// WriteCopyDone writes a CopyDone message, used both to end a normal
// COPY OUT and to politely decline a CopyIn request per §4.5.
func WriteCopyDone(w *buffer.Writer) error {
	w.Start(byte(FrontendCopyDone))
	return w.End()
}

// WriteCopyFail writes a CopyFail message.
func WriteCopyFail(w *buffer.Writer, reason string) error {
	w.Start(byte(FrontendCopyFail))
	w.AddCString(reason)
	return w.End()
}

// WriteCopyData writes a CopyData message wrapping raw payload bytes -
// used on the replication connection to send StandbyStatusUpdate and
// HotStandbyFeedback submessages.
func WriteCopyData(w *buffer.Writer, payload []byte) error {
	w.Start(byte(FrontendCopyData))
	w.AddBytes(payload)
	return w.End()
}

// WriteTerminate writes a Terminate message.
func WriteTerminate(w *buffer.Writer) error {
	w.Start(byte(FrontendTerminate))
	return w.End()
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
