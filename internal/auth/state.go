package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateState returns a cryptographically random state string used to bind
// the authorization callback to the request that initiated it.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
