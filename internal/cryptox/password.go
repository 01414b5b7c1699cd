// Package cryptox implements the credential format used by the user
// directory: salted PBKDF2-HMAC-SHA256 for new passwords, with read-only
// support for the legacy unsalted SHA-256 digests written by older clients.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Prefix tags credentials in the current format.
	PBKDF2Prefix = "pbkdf2"

	// Iterations is the fixed PBKDF2 work factor.
	Iterations = 100_000

	SaltSize = 16
	KeySize  = 32

	legacyHexLen = sha256.Size * 2
)

// readRandom is a test seam for crypto/rand.Read.
var readRandom = rand.Read

// DeriveKey runs PBKDF2-HMAC-SHA256 over password and salt with the fixed
// iteration count and key size.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// HashPassword returns a credential of the form pbkdf2:<saltHex>:<keyHex>
// built from a fresh random salt. It fails only if the random source does.
func HashPassword(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := readRandom(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := DeriveKey(password, salt)
	return PBKDF2Prefix + ":" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches stored. The format is
// picked from the shape of stored; malformed credentials verify as false.
func VerifyPassword(password, stored string) bool {
	if strings.HasPrefix(stored, PBKDF2Prefix+":") {
		return verifyPBKDF2(password, stored)
	}
	return verifyLegacy(password, stored)
}

func verifyPBKDF2(password, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) != KeySize {
		return false
	}
	got := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func verifyLegacy(password, stored string) bool {
	if !IsLegacyHash(stored) {
		return false
	}
	got := LegacyHash(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(stored))) == 1
}

// LegacyHash returns the hex SHA-256 digest older clients stored as a
// credential. It exists for migration and tests; new credentials always use
// HashPassword.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether stored has the shape of a legacy digest.
func IsLegacyHash(stored string) bool {
	if len(stored) != legacyHexLen {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// NeedsRehash reports whether a credential verified by VerifyPassword should
// be replaced with a fresh HashPassword result.
func NeedsRehash(stored string) bool {
	return !strings.HasPrefix(stored, PBKDF2Prefix+":")
}
