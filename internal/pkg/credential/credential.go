// Package credential generates pairing tokens and derives the bearer
// credential a mobile client presents for a device.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultTokenLength is the session token length issued at pairing request.
const DefaultTokenLength = 10

var alphabetLen = big.NewInt(int64(len(alphabet)))

// GenerateToken returns length characters drawn uniformly, with replacement,
// from the 62 character alphanumeric alphabet.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("token length must be positive")
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// DeriveCredential returns the hex SHA-256 of deviceID.
func DeriveCredential(deviceID string) string {
	sum := sha256.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether presented is the credential for deviceID.
func Matches(deviceID, presented string) bool {
	if presented == "" {
		return false
	}
	want := DeriveCredential(deviceID)
	return subtle.ConstantTimeCompare([]byte(want), []byte(presented)) == 1
}
