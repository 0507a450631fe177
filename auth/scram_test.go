package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaywire/pgreplicate/errkind"
)

// scramServer is a minimal RFC 5802 server used only to drive Client
// through a full, correct exchange and confirm it accepts a genuinely
// valid server signature (and rejects a forged one).
type scramServer struct {
	password       string
	salt           []byte
	iterations     int
	clientNonce    string
	serverNonce    string
	clientFirst    string
	saltedPassword []byte
}

func newScramServer(password string) *scramServer {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	return &scramServer{password: password, salt: salt, iterations: 4096}
}

func (s *scramServer) firstMessage(clientFirstBare string) string {
	s.clientFirst = clientFirstBare
	fields, _ := parseFields(clientFirstBare)
	s.clientNonce = fields["r"]

	extra := make([]byte, 12)
	_, _ = rand.Read(extra)
	s.serverNonce = s.clientNonce + base64.StdEncoding.EncodeToString(extra)

	return fmt.Sprintf("r=%s,s=%s,i=%d", s.serverNonce, base64.StdEncoding.EncodeToString(s.salt), s.iterations)
}

func (s *scramServer) finalMessage(clientFinalMessage, serverFirstMessage string) (string, bool) {
	fields, _ := parseFields(clientFinalMessage)
	proofB64 := fields["p"]
	proof, _ := base64.StdEncoding.DecodeString(proofB64)

	withoutProof := clientFinalMessage[:strings.LastIndex(clientFinalMessage, ",p=")]
	authMessage := s.clientFirst + "," + serverFirstMessage + "," + withoutProof

	s.saltedPassword = pbkdf2.Key([]byte(s.password), s.salt, s.iterations, sha256.Size, sha256.New)
	clientKey := hmacSHA256(s.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSig := hmacSHA256(storedKey[:], []byte(authMessage))

	computedKey := make([]byte, len(clientKey))
	for i := range computedKey {
		computedKey[i] = proof[i] ^ clientSig[i]
	}
	gotStored := sha256.Sum256(computedKey)
	if !hmac.Equal(gotStored[:], storedKey[:]) {
		return "", false
	}

	serverKey := hmacSHA256(s.saltedPassword, []byte("Server Key"))
	serverSig := hmacSHA256(serverKey, []byte(authMessage))
	return "v=" + base64.StdEncoding.EncodeToString(serverSig), true
}

func TestSCRAMExchangeSucceedsWithValidServer(t *testing.T) {
	client, err := NewClient(MechanismSCRAMSHA256, nil)
	require.NoError(t, err)

	server := newScramServer("pencil")

	first, err := client.InitialResponse()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(first), "n,,n=,r="))

	clientFirstBare := strings.TrimPrefix(string(first), "n,,")
	serverFirst := server.firstMessage(clientFirstBare)

	clientFinal, err := client.ContinueResponse([]byte(serverFirst), "pencil")
	require.NoError(t, err)

	serverFinal, ok := server.finalMessage(string(clientFinal), serverFirst)
	require.True(t, ok, "server should accept the client's proof")

	assert.NoError(t, client.Finish([]byte(serverFinal)))
}

func TestSCRAMFinishRejectsForgedSignature(t *testing.T) {
	client, err := NewClient(MechanismSCRAMSHA256, nil)
	require.NoError(t, err)

	server := newScramServer("pencil")
	first, err := client.InitialResponse()
	require.NoError(t, err)

	serverFirst := server.firstMessage(strings.TrimPrefix(string(first), "n,,"))
	_, err = client.ContinueResponse([]byte(serverFirst), "pencil")
	require.NoError(t, err)

	forged := "v=" + base64.StdEncoding.EncodeToString([]byte("not-the-real-signature!"))
	err = client.Finish([]byte(forged))
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Forbidden))
}

func TestSCRAMContinueRejectsMismatchedNonce(t *testing.T) {
	client, err := NewClient(MechanismSCRAMSHA256, nil)
	require.NoError(t, err)
	_, err = client.InitialResponse()
	require.NoError(t, err)

	_, err = client.ContinueResponse([]byte("r=totally-different,s=AA==,i=4096"), "pencil")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Forbidden))
}

func TestNewClientRequiresCertHashForPlusVariant(t *testing.T) {
	_, err := NewClient(MechanismSCRAMSHA256Plus, nil)
	assert.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Fault))
}

func TestNewClientRejectsUnknownMechanism(t *testing.T) {
	_, err := NewClient("SCRAM-SHA-1", nil)
	assert.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Unsupported))
}
