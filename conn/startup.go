package conn

import (
	"bytes"
	"context"
	"fmt"

	"github.com/relaywire/pgreplicate/auth"
	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// StartupParams are the connection parameters sent in the StartupMessage,
// per §4.4 step 2.
type StartupParams struct {
	User            string
	Database        string
	Replication     string // "", "true" or "database"
	Options         string
	ApplicationName string
}

func (p StartupParams) toMap() map[string]string {
	m := map[string]string{"user": p.User}
	if p.Database != "" {
		m["database"] = p.Database
	}
	if p.Replication != "" {
		m["replication"] = p.Replication
	}
	if p.Options != "" {
		m["options"] = p.Options
	}
	if p.ApplicationName != "" {
		m["application_name"] = p.ApplicationName
	}
	return m
}

// Startup drives the authentication and startup sequence of §4.4 to
// completion: StartupMessage, the SASL authentication loop, then
// ParameterStatus/BackendKeyData collection until ReadyForQuery.
func (c *Connection) Startup(ctx context.Context, params StartupParams, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := protocol.WriteStartup(c.writer, params.toMap()); err != nil {
		return errkind.Unavailablef(fmt.Errorf("conn: write startup message: %w", err))
	}

	c.backendParams = make(map[string]string)

	var scram *auth.Client

	for {
		select {
		case <-ctx.Done():
			return errkind.Unavailablef(ctx.Err())
		default:
		}

		tag, err := c.reader.ReadFrame()
		if err != nil {
			return errkind.Unavailablef(fmt.Errorf("conn: read startup response: %w", err))
		}

		switch protocol.BackendTag(tag) {
		case protocol.BackendAuth:
			req, err := protocol.DecodeAuthRequest(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode auth request: %w", err))
			}

			done, err := c.handleAuthRequest(req, password, &scram)
			if err != nil {
				return err
			}
			if done {
				continue
			}

		case protocol.BackendParameterStatus:
			ps, err := protocol.DecodeParameterStatus(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode parameter status: %w", err))
			}
			c.backendParams[ps.Name] = ps.Value

		case protocol.BackendBackendKeyData:
			bkd, err := protocol.DecodeBackendKeyData(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode backend key data: %w", err))
			}
			c.backendPID, c.backendSecret = bkd.ProcessID, bkd.SecretKey

		case protocol.BackendReadyForQuery:
			_, err := protocol.DecodeReadyForQuery(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode ready-for-query: %w", err))
			}
			return nil

		case protocol.BackendNoticeResponse:
			// logged and discarded; a NoticeResponse never aborts startup.
			se, err := protocol.DecodeErrorFields(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode notice response: %w", err))
			}
			c.logger.Info("conn: notice during startup: " + se.Error())

		case protocol.BackendErrorResponse:
			se, err := protocol.DecodeErrorFields(c.reader)
			if err != nil {
				return errkind.Faultf(fmt.Errorf("conn: decode error response: %w", err))
			}
			return se

		default:
			return errkind.Faultf(fmt.Errorf("conn: unexpected message %q during startup", tag))
		}
	}
}

// handleAuthRequest advances the SASL state machine by one AuthRequest.
// done reports whether authentication is complete (AuthOK).
func (c *Connection) handleAuthRequest(req *protocol.AuthRequest, password string, scram **auth.Client) (done bool, err error) {
	switch req.SubType {
	case protocol.AuthOK:
		return true, nil

	case protocol.AuthSASL:
		mechanisms := parseMechanismList(req.Data)
		mechanism, err := auth.SelectMechanism(mechanisms, c.certHash != nil)
		if err != nil {
			return false, err
		}

		client, err := auth.NewClient(mechanism, c.certHash)
		if err != nil {
			return false, err
		}
		*scram = client

		initial, err := client.InitialResponse()
		if err != nil {
			return false, err
		}

		if err := protocol.WriteSASLInitialResponse(c.writer, mechanism, initial); err != nil {
			return false, errkind.Unavailablef(fmt.Errorf("conn: write SASL initial response: %w", err))
		}
		return false, nil

	case protocol.AuthSASLContinue:
		if *scram == nil {
			return false, errkind.Faultf(fmt.Errorf("conn: SASL continue received before SASL was started"))
		}

		final, err := (*scram).ContinueResponse(req.Data, password)
		if err != nil {
			return false, err
		}

		if err := protocol.WriteSASLResponse(c.writer, final); err != nil {
			return false, errkind.Unavailablef(fmt.Errorf("conn: write SASL response: %w", err))
		}
		return false, nil

	case protocol.AuthSASLFinal:
		if *scram == nil {
			return false, errkind.Faultf(fmt.Errorf("conn: SASL final received before SASL was started"))
		}
		return false, (*scram).Finish(req.Data)

	default:
		return false, auth.RejectUnsupported(req.SubType)
	}
}

// parseMechanismList splits an AuthenticationSASL body: a sequence of
// NUL-terminated mechanism names terminated by an empty one.
func parseMechanismList(data []byte) []string {
	var mechanisms []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) == 0 {
			continue
		}
		mechanisms = append(mechanisms, string(part))
	}
	return mechanisms
}
