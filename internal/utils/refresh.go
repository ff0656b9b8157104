package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// refreshSecretBytes keeps the hex secret (64 chars) under bcrypt's 72 byte input limit.
const refreshSecretBytes = 32

const refreshSeparator = "|"

// NewRefreshSecret returns a cryptographically secure random secret for a
// refresh record.
func NewRefreshSecret() (string, error) {
	return randomHex(refreshSecretBytes)
}

// EncodeRefreshCookie joins a refresh record id and its secret into the
// cookie value "<id>|<secret>".
func EncodeRefreshCookie(id, secret string) string {
	return id + refreshSeparator + secret
}

// ParseRefreshCookie splits a cookie value produced by EncodeRefreshCookie.
// ok is false unless both parts are present.
func ParseRefreshCookie(v string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(v, refreshSeparator)
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}

// randomHex returns a hex-encoded string generated from n random bytes.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
