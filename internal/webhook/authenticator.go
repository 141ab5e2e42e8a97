// Package webhook authenticates and decodes inbound verification events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	dErrors "onboard-gateway/pkg/domain-errors"
)

// DigestHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
const DigestHeader = "X-Payload-Digest"

// Authenticator verifies inbound event payloads against the shared secret.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator constructs an Authenticator for the given shared secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify checks the payload digest in constant time. A mismatch means the
// sender does not hold the shared secret; callers reject without retry.
func (a *Authenticator) Verify(rawBody []byte, signatureHex string) error {
	if signatureHex == "" {
		return dErrors.New(dErrors.CodeAuthenticationFailed, "missing payload digest")
	}

	provided, err := hex.DecodeString(signatureHex)
	if err != nil {
		return dErrors.New(dErrors.CodeAuthenticationFailed, "malformed payload digest")
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, provided) {
		return dErrors.New(dErrors.CodeAuthenticationFailed, "payload digest mismatch")
	}
	return nil
}

// Sign computes the hex digest for a payload. Used by tests and the local
// event replay tooling.
func (a *Authenticator) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
