// Package apikey generates and verifies the API key secrets spec §3
// describes: a random secret returned once at creation time, with only
// its hash persisted thereafter and compared in constant time. No pack
// repo's go.mod carries a password-hashing library (bcrypt/argon2/scrypt
// never show up across the retrieval pack), so this stays on the
// standard library's crypto/sha256 + crypto/subtle rather than inventing
// a dependency; see DESIGN.md.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"github.com/storj-labs/workspace-broker/internal/apierror"
)

// secretBytes is the amount of entropy generated per secret, matching
// the teacher's convention of 256-bit tokens elsewhere in its auth code.
const secretBytes = 32

// Generate returns a new (keyID, secret, secretHash) triple: keyID is
// the public identifier stored alongside ApiKey.KeyID, secret is
// returned to the caller exactly once, and hash is what gets persisted.
func Generate() (keyID string, secret string, hash []byte, err error) {
	keyIDRaw := make([]byte, 16)
	if _, err := rand.Read(keyIDRaw); err != nil {
		return "", "", nil, apierror.Wrap(apierror.KindUnknown, err, "failed to generate api key id")
	}
	secretRaw := make([]byte, secretBytes)
	if _, err := rand.Read(secretRaw); err != nil {
		return "", "", nil, apierror.Wrap(apierror.KindUnknown, err, "failed to generate api key secret")
	}

	keyID = hex.EncodeToString(keyIDRaw)
	secret = base64.RawURLEncoding.EncodeToString(secretRaw)
	return keyID, secret, Hash(secret), nil
}

// Hash derives the persisted form of a secret.
func Hash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Verify reports whether secret matches hash, in constant time.
func Verify(secret string, hash []byte) bool {
	return subtle.ConstantTimeCompare(Hash(secret), hash) == 1
}
