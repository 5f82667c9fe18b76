// Package seal holds the cryptography of the access layer: root key
// derivation for local storage, AES-256-GCM encryption, the {__encrypted,
// ciphertext} envelope written to sensitive paths, and document key
// derivation and sharing between devices.
package seal

import (
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Development fallbacks for the root secret and salt. They are public
// knowledge and only acceptable outside production.
const (
	DevRootSecret = "vh-dev-root-secret"
	DevRootSalt   = "vh-dev-root-salt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// DefaultIterations is the PBKDF2 work factor for root keys.
	DefaultIterations = 100_000
)

// KeySource derives a symmetric key from a root secret and salt on first
// use and returns the same key afterwards.
//
// Thread-safety: Key is safe for concurrent use; derivation runs once.
type KeySource struct {
	secret     string
	salt       string
	iterations int

	once sync.Once
	key  []byte
}

// NewKeySource creates a key source. Empty secret or salt fall back to the
// development values.
func NewKeySource(secret, salt string) *KeySource {
	return NewKeySourceWithIterations(secret, salt, DefaultIterations)
}

// NewKeySourceWithIterations is NewKeySource with an explicit work factor.
func NewKeySourceWithIterations(secret, salt string, iterations int) *KeySource {
	if secret == "" {
		secret = DevRootSecret
	}
	if salt == "" {
		salt = DevRootSalt
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &KeySource{secret: secret, salt: salt, iterations: iterations}
}

// Key returns the derived key. The returned slice must not be modified.
func (k *KeySource) Key() []byte {
	k.once.Do(func() {
		k.key = pbkdf2.Key([]byte(k.secret), []byte(k.salt), k.iterations, KeySize, sha256.New)
	})
	return k.key
}

// IsDev reports whether either input is a development fallback.
func (k *KeySource) IsDev() bool {
	return k.secret == DevRootSecret || k.salt == DevRootSalt
}
