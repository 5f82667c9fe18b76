package seal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

// ErrKeyShare is returned when a shared document key cannot be opened.
var ErrKeyShare = errors.New("seal: document key share could not be opened")

// DeriveDocumentKey derives the owner's key for docID. The same owner and
// document always yield the same key.
func DeriveDocumentKey(docID string, owner *DevicePair) ([]byte, error) {
	if docID == "" {
		return nil, errors.New("seal: document id is required")
	}
	return owner.expand([]byte(docID), "vh-doc-key"), nil
}

// ShareDocumentKey encrypts docKey for a collaborator's epub. The result is
// base64(nonce || box).
func ShareDocumentKey(docKey []byte, collaboratorEPub string, owner *DevicePair) (string, error) {
	their, err := decodeEPub(collaboratorEPub)
	if err != nil {
		return "", err
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("seal: generate nonce: %w", err)
	}
	sealed := box.Seal(nonce[:], docKey, &nonce, their, &owner.epriv)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// ReceiveDocumentKey opens a key shared by the owner of ownerEPub.
func ReceiveDocumentKey(encrypted, ownerEPub string, me *DevicePair) ([]byte, error) {
	their, err := decodeEPub(ownerEPub)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil || len(raw) < 24 {
		return nil, ErrKeyShare
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	key, ok := box.Open(nil, raw[24:], &nonce, their, &me.epriv)
	if !ok {
		return nil, ErrKeyShare
	}
	return key, nil
}
