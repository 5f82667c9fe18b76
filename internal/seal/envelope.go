package seal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// EncryptedFlag marks an envelope on the wire.
const EncryptedFlag = "__encrypted"

// ErrNotEnvelope is returned by Open when the input is not an envelope.
var ErrNotEnvelope = errors.New("seal: not an encrypted envelope")

// Envelope is the shape written to sensitive paths.
type Envelope struct {
	Encrypted  bool   `json:"__encrypted"`
	Ciphertext string `json:"ciphertext"`
}

// IsEncrypted reports the envelope flag.
func (e Envelope) IsEncrypted() bool {
	return e.Encrypted
}

// Map returns the envelope as a JSON object.
func (e Envelope) Map() map[string]any {
	return map[string]any{EncryptedFlag: e.Encrypted, "ciphertext": e.Ciphertext}
}

// ParseEnvelope extracts an envelope from a decoded mesh node. Extra keys
// are ignored.
func ParseEnvelope(v any) (Envelope, bool) {
	switch e := v.(type) {
	case Envelope:
		return e, e.Encrypted
	case *Envelope:
		if e == nil {
			return Envelope{}, false
		}
		return *e, e.Encrypted
	case map[string]any:
		flag, _ := e[EncryptedFlag].(bool)
		ct, ok := e["ciphertext"].(string)
		if !flag || !ok {
			return Envelope{}, false
		}
		return Envelope{Encrypted: true, Ciphertext: ct}, true
	}
	return Envelope{}, false
}

// Sealer encrypts JSON values into envelopes under a single key.
type Sealer struct {
	key []byte
}

// NewSealer creates a sealer for a KeySize-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("seal: key must be %d bytes, got %d", KeySize, len(key))
	}
	owned := make([]byte, KeySize)
	copy(owned, key)
	return &Sealer{key: owned}, nil
}

// Seal JSON-encodes v and encrypts it. Ciphertext is base64(iv || sealed).
func (s *Sealer) Seal(v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("seal: encode: %w", err)
	}
	return s.SealBytes(plaintext)
}

// SealBytes encrypts raw bytes into an envelope.
func (s *Sealer) SealBytes(plaintext []byte) (Envelope, error) {
	iv, ct, err := Encrypt(s.key, plaintext)
	if err != nil {
		return Envelope{}, err
	}
	buf := make([]byte, 0, len(iv)+len(ct))
	buf = append(buf, iv...)
	buf = append(buf, ct...)
	return Envelope{Encrypted: true, Ciphertext: base64.StdEncoding.EncodeToString(buf)}, nil
}

// Open decrypts an envelope (or a decoded node carrying one) into out.
func (s *Sealer) Open(node any, out any) error {
	plaintext, err := s.OpenBytes(node)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("seal: decode: %w", err)
	}
	return nil
}

// OpenBytes decrypts an envelope into raw bytes.
func (s *Sealer) OpenBytes(node any) ([]byte, error) {
	env, ok := ParseEnvelope(node)
	if !ok {
		return nil, ErrNotEnvelope
	}
	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < IVSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	return Decrypt(s.key, raw[:IVSize], raw[IVSize:])
}
