package seal

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
)

// SeedSize is the length of the seed a DevicePair is derived from.
const SeedSize = 32

var keyEncoding = base64.RawURLEncoding

// DevicePair is a device's key material: an ed25519 signing pair (Pub is
// the identity that roots the user graph at "~<pub>") and an X25519 pair
// (EPub) for key agreement.
type DevicePair struct {
	seed  []byte
	sign  ed25519.PrivateKey
	epriv [32]byte
	epub  [32]byte
}

// GenerateDevicePair creates a pair from crypto/rand.
func GenerateDevicePair() (*DevicePair, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("seal: generate seed: %w", err)
	}
	return DevicePairFromSeed(seed)
}

// DevicePairFromSeed derives a pair deterministically from a 32-byte seed.
func DevicePairFromSeed(seed []byte) (*DevicePair, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seal: seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	p := &DevicePair{
		seed: append([]byte(nil), seed...),
		sign: ed25519.NewKeyFromSeed(seed),
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte("vh-device-epriv")), p.epriv[:]); err != nil {
		return nil, fmt.Errorf("seal: derive epriv: %w", err)
	}
	epub, err := curve25519.X25519(p.epriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("seal: derive epub: %w", err)
	}
	copy(p.epub[:], epub)
	return p, nil
}

// Pub returns the encoded signing public key.
func (p *DevicePair) Pub() string {
	return keyEncoding.EncodeToString(p.sign.Public().(ed25519.PublicKey))
}

// EPub returns the encoded key-agreement public key.
func (p *DevicePair) EPub() string {
	return keyEncoding.EncodeToString(p.epub[:])
}

// Sign signs msg and returns the encoded signature.
func (p *DevicePair) Sign(msg []byte) string {
	return keyEncoding.EncodeToString(ed25519.Sign(p.sign, msg))
}

// Verify checks an encoded signature against an encoded public key.
func Verify(pub string, msg []byte, sig string) bool {
	pk, err := keyEncoding.DecodeString(pub)
	if err != nil || len(pk) != ed25519.PublicKeySize {
		return false
	}
	s, err := keyEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return ed25519.Verify(pk, msg, s)
}

// SelfKey derives the key a device uses to seal data only it reads back
// (its outbox, its bridge records).
func (p *DevicePair) SelfKey() []byte {
	return p.expand([]byte(p.Pub()), "vh-self-seal")
}

// SharedKey derives the symmetric key shared with the holder of theirEPub.
// Both sides compute the same key.
func (p *DevicePair) SharedKey(theirEPub string) ([]byte, error) {
	their, err := decodeEPub(theirEPub)
	if err != nil {
		return nil, err
	}
	var shared [32]byte
	box.Precompute(&shared, their, &p.epriv)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared[:], nil, []byte("vh-shared-seal")), key); err != nil {
		return nil, fmt.Errorf("seal: derive shared key: %w", err)
	}
	return key, nil
}

func (p *DevicePair) expand(salt []byte, info string) []byte {
	key := make([]byte, KeySize)
	// hkdf over a 32-byte seed cannot run short for a 32-byte output.
	_, _ = io.ReadFull(hkdf.New(sha256.New, p.seed, salt, []byte(info)), key)
	return key
}

var errBadEPub = errors.New("seal: invalid epub")

func decodeEPub(s string) (*[32]byte, error) {
	raw, err := keyEncoding.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, errBadEPub
	}
	var out [32]byte
	copy(out[:], raw)
	return &out, nil
}
