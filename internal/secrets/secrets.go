// Package secrets generates the opaque random material used by the auth
// flows: reset/verification tokens and temporary passwords.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

const (
	tokenBytes       = 32
	tempPasswordLen  = 16
	passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Token returns a URL-safe opaque token with 256 bits of entropy, used for
// password reset and email verification links.
func Token() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// TempPassword returns a 16-character random password from an alphabet
// without look-alike characters. Generated at registration and delivered
// only through the mail collaborator; the plaintext is never persisted.
func TempPassword() (string, error) {
	out := make([]byte, tempPasswordLen)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
