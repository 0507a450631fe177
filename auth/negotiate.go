package auth

import (
	"fmt"
	"strings"

	"github.com/relaywire/pgreplicate/errkind"
	"github.com/relaywire/pgreplicate/protocol"
)

// SelectMechanism picks SCRAM-SHA-256-PLUS when both the server offered
// it and TLS channel binding data is available, falling back to plain
// SCRAM-SHA-256, per §4.4.
func SelectMechanism(offered []string, channelBindingAvailable bool) (string, error) {
	has := func(name string) bool {
		for _, m := range offered {
			if m == name {
				return true
			}
		}
		return false
	}

	if channelBindingAvailable && has(MechanismSCRAMSHA256Plus) {
		return MechanismSCRAMSHA256Plus, nil
	}
	if has(MechanismSCRAMSHA256) {
		return MechanismSCRAMSHA256, nil
	}

	return "", errkind.Unsupportedf(fmt.Errorf("auth: server offered no supported SASL mechanism (offered %s)", strings.Join(offered, ", ")))
}

// RejectUnsupported classifies the auth methods this client deliberately
// does not implement - clear-text, MD5, Kerberos, GSSAPI, SSPI - as
// Unsupported, per §4.4's closing sentence.
func RejectUnsupported(sub protocol.AuthSubType) error {
	switch sub {
	case protocol.AuthCleartextPassword:
		return errkind.Unsupportedf(fmt.Errorf("auth: cleartext password authentication is not supported"))
	case protocol.AuthMD5Password:
		return errkind.Unsupportedf(fmt.Errorf("auth: MD5 password authentication is not supported"))
	case protocol.AuthGSS, protocol.AuthGSSContinue:
		return errkind.Unsupportedf(fmt.Errorf("auth: GSSAPI authentication is not supported"))
	case protocol.AuthSSPI:
		return errkind.Unsupportedf(fmt.Errorf("auth: SSPI authentication is not supported"))
	default:
		return errkind.Unsupportedf(fmt.Errorf("auth: unsupported authentication request type %d", sub))
	}
}
