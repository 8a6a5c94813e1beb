package security

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// refreshSecretBytes is the entropy of the refresh secret half. 32 bytes keeps
// the base64 form under bcrypt's 72-byte input limit.
const refreshSecretBytes = 32

// NewRefreshSecret returns a fresh opaque refresh secret: 256 bits of
// cryptographic randomness, URL-safe base64 without padding.
func NewRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// FormatRefreshToken joins the session id and secret into the wire form
// "sessionID.secret". The id half gives O(1) indexed lookup; only the secret
// half is ever hashed and compared.
func FormatRefreshToken(sessionID, secret string) string {
	return sessionID + "." + secret
}

// ParseRefreshToken splits a refresh token into its session id and secret
// halves. Returns ErrInvalidToken for anything that does not match the
// two-part shape.
func ParseRefreshToken(token string) (sessionID, secret string, err error) {
	token = strings.TrimSpace(token)
	// Bound input before any crypto work.
	if token == "" || len(token) > 256 {
		return "", "", ErrInvalidToken
	}
	i := strings.IndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", "", ErrInvalidToken
	}
	return token[:i], token[i+1:], nil
}
