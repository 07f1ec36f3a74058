package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierEntropyBytes is the amount of randomness behind each code_verifier.
// 32 bytes base64url-encode to 43 characters, the RFC 7636 minimum length.
const verifierEntropyBytes = 32

// PKCEPair is a code_verifier and its derived S256 code_challenge. The
// challenge travels in the authorization request; the verifier is only ever
// sent in the token exchange. A pair is used for exactly one flow attempt.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a fresh PKCE pair per RFC 7636: the verifier is
// base64url (no padding) of 32 cryptographically random bytes, the challenge
// is base64url (no padding) of SHA-256 over the verifier's ASCII bytes.
// An entropy-source failure is unrecoverable for the caller.
func GeneratePKCE() (PKCEPair, error) {
	b := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return PKCEPair{}, fmt.Errorf("generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)
	return PKCEPair{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
	}, nil
}

// ChallengeS256 computes base64url(SHA256(verifier)) without padding.
func ChallengeS256(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
