package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashCredential returns the hex-encoded SHA-256 of a bearer credential. The result is the
// comparison key stored with a session; the raw credential is never persisted.
func HashCredential(credential string) string {
	h := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(h[:])
}

// CredentialHashEqual reports, in constant time, whether credential hashes to storedHash.
// An empty credential never matches.
func CredentialHashEqual(credential, storedHash string) bool {
	if credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashCredential(credential)), []byte(storedHash)) == 1
}
