// Package auth implements client-side SASL/SCRAM authentication (C4):
// SCRAM-SHA-256 and its channel-bound variant SCRAM-SHA-256-PLUS.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"

	"github.com/relaywire/pgreplicate/errkind"
)

const (
	MechanismSCRAMSHA256     = "SCRAM-SHA-256"
	MechanismSCRAMSHA256Plus = "SCRAM-SHA-256-PLUS"

	nonceBytes = 18
)

// Client drives one SCRAM exchange (RFC 5802) end to end. A Client is
// used exactly once, for a single authentication attempt.
type Client struct {
	mechanism      string
	channelBinding bool
	certHash       []byte // DER-cert SHA-256, only used when channelBinding

	clientNonce    string
	clientFirstBare string
	serverSig      []byte
}

// NewClient constructs a Client for mechanism. certHash is the SHA-256 of
// the server's DER-encoded certificate; it is required (and only used)
// when mechanism is SCRAM-SHA-256-PLUS.
func NewClient(mechanism string, certHash []byte) (*Client, error) {
	switch mechanism {
	case MechanismSCRAMSHA256:
		return &Client{mechanism: mechanism}, nil
	case MechanismSCRAMSHA256Plus:
		if certHash == nil {
			return nil, errkind.Faultf(fmt.Errorf("auth: %s requires a server certificate hash for channel binding", mechanism))
		}
		return &Client{mechanism: mechanism, channelBinding: true, certHash: certHash}, nil
	default:
		return nil, errkind.Unsupportedf(fmt.Errorf("auth: unsupported SASL mechanism %q", mechanism))
	}
}

// gs2Header returns the GS2 header prefixing the channel-binding flag
// and (empty, since PostgreSQL never uses one) authzid, per §4.4.
func (c *Client) gs2Header() string {
	if c.channelBinding {
		return "p=tls-server-end-point,,"
	}
	return "n,,"
}

// InitialResponse builds the client-first-message sent inside
// SASLInitialResponse.
func (c *Client) InitialResponse() ([]byte, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errkind.WithKind(fmt.Errorf("auth: generate client nonce: %w", err), errkind.Fault)
	}
	c.clientNonce = base64.StdEncoding.EncodeToString(nonce)

	c.clientFirstBare = fmt.Sprintf("n=,r=%s", c.clientNonce)
	return []byte(c.gs2Header() + c.clientFirstBare), nil
}

// ContinueResponse consumes the server-first-message ("r=...,s=...,i=...")
// and, given the connection password, returns the client-final-message.
// It also records the expected server signature for Finish to verify.
func (c *Client) ContinueResponse(serverFirstMessage []byte, password string) ([]byte, error) {
	fields, err := parseFields(string(serverFirstMessage))
	if err != nil {
		return nil, errkind.WithKind(err, errkind.Fault)
	}

	serverNonce, ok := fields["r"]
	if !ok || !strings.HasPrefix(serverNonce, c.clientNonce) {
		return nil, errkind.Forbiddenf(fmt.Errorf("auth: server nonce does not extend client nonce"))
	}

	saltB64, ok := fields["s"]
	if !ok {
		return nil, errkind.Faultf(fmt.Errorf("auth: server-first-message missing salt"))
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, errkind.Faultf(fmt.Errorf("auth: malformed salt: %w", err))
	}

	iterStr, ok := fields["i"]
	if !ok {
		return nil, errkind.Faultf(fmt.Errorf("auth: server-first-message missing iteration count"))
	}
	iterations, err := strconv.Atoi(iterStr)
	if err != nil || iterations <= 0 {
		return nil, errkind.Faultf(fmt.Errorf("auth: malformed iteration count %q", iterStr))
	}

	normalized, err := precis.OpaqueString.String(password)
	if err != nil {
		normalized = password // SASLprep failure falls back to the raw password, per RFC 5802 §5.1
	}

	saltedPassword := pbkdf2.Key([]byte(normalized), salt, iterations, sha256.Size, sha256.New)

	channelBindingData := []byte(c.gs2Header())
	if c.channelBinding {
		channelBindingData = append(channelBindingData, c.certHash...)
	}
	cbindInput := "c=" + base64.StdEncoding.EncodeToString(channelBindingData)

	clientFinalWithoutProof := cbindInput + ",r=" + serverNonce
	authMessage := c.clientFirstBare + "," + string(serverFirstMessage) + "," + clientFinalWithoutProof

	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSig := hmacSHA256(storedKey[:], []byte(authMessage))

	clientProof := make([]byte, len(clientKey))
	for i := range clientProof {
		clientProof[i] = clientKey[i] ^ clientSig[i]
	}

	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))
	c.serverSig = hmacSHA256(serverKey, []byte(authMessage))

	final := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	return []byte(final), nil
}

// Finish verifies the server-final-message's signature ("v=...") against
// the value computed in ContinueResponse. A mismatch is a Forbidden
// failure: it means the server does not know the password (or is being
// impersonated).
func (c *Client) Finish(serverFinalMessage []byte) error {
	fields, err := parseFields(string(serverFinalMessage))
	if err != nil {
		return errkind.WithKind(err, errkind.Fault)
	}

	sigB64, ok := fields["v"]
	if !ok {
		if errStr, ok := fields["e"]; ok {
			return errkind.Forbiddenf(fmt.Errorf("auth: SCRAM authentication failed: %s", errStr))
		}
		return errkind.Faultf(fmt.Errorf("auth: server-final-message missing signature"))
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return errkind.Faultf(fmt.Errorf("auth: malformed server signature: %w", err))
	}

	if subtle.ConstantTimeCompare(sig, c.serverSig) != 1 {
		return errkind.Forbiddenf(fmt.Errorf("auth: server signature verification failed"))
	}

	return nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// parseFields splits a comma-separated "k=v" SCRAM message into a map.
func parseFields(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("auth: malformed SCRAM field %q", part)
		}
		fields[kv[0]] = kv[1]
	}
	return fields, nil
}
