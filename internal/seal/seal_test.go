package seal

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low work factor keeps tests fast; derivation itself is the same.
func testKeySource() *KeySource {
	return NewKeySourceWithIterations("test-secret", "test-salt", 1000)
}

func seededPair(t *testing.T, b byte) *DevicePair {
	t.Helper()
	p, err := DevicePairFromSeed(bytes.Repeat([]byte{b}, SeedSize))
	require.NoError(t, err)
	return p
}

func TestKeySource_Memoized(t *testing.T) {
	ks := testKeySource()
	k1 := ks.Key()
	k2 := ks.Key()
	require.Len(t, k1, KeySize)
	assert.Same(t, &k1[0], &k2[0], "derivation runs once")

	other := NewKeySourceWithIterations("test-secret", "other-salt", 1000)
	assert.NotEqual(t, k1, other.Key())
}

func TestKeySource_DevFallbacks(t *testing.T) {
	assert.True(t, NewKeySource("", "").IsDev())
	assert.True(t, NewKeySource("real", "").IsDev())
	assert.False(t, NewKeySource("real", "salt").IsDev())
}

func TestEncrypt_RoundTripAndTamper(t *testing.T) {
	key := testKeySource().Key()
	iv, ct, err := Encrypt(key, []byte("hello mesh"))
	require.NoError(t, err)
	require.Len(t, iv, IVSize)

	pt, err := Decrypt(key, iv, ct)
	require.NoError(t, err)
	assert.Equal(t, "hello mesh", string(pt))

	ct[0] ^= 0xff
	_, err = Decrypt(key, iv, ct)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, _, err = Encrypt([]byte("short"), []byte("x"))
	assert.Error(t, err)
}

func TestSealer_EnvelopeRoundTrip(t *testing.T) {
	s, err := NewSealer(testKeySource().Key())
	require.NoError(t, err)

	in := map[string]any{"text": "meet at noon", "n": float64(3)}
	env, err := s.Seal(in)
	require.NoError(t, err)
	assert.True(t, env.IsEncrypted())
	assert.NotContains(t, env.Ciphertext, "meet at noon")

	var out map[string]any
	require.NoError(t, s.Open(env.Map(), &out))
	assert.Equal(t, in, out)

	// Extra keys next to the envelope are ignored.
	node := env.Map()
	node["id"] = "m1"
	out = nil
	require.NoError(t, s.Open(node, &out))
	assert.Equal(t, in, out)
}

func TestSealer_RejectsNonEnvelopes(t *testing.T) {
	s, err := NewSealer(testKeySource().Key())
	require.NoError(t, err)

	var out any
	assert.ErrorIs(t, s.Open(map[string]any{"ciphertext": "x"}, &out), ErrNotEnvelope)
	assert.ErrorIs(t, s.Open(42, &out), ErrNotEnvelope)
	assert.ErrorIs(t, s.Open(map[string]any{EncryptedFlag: true, "ciphertext": "!!"}, &out), ErrDecrypt)

	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	assert.ErrorIs(t, s.Open(Envelope{Encrypted: true, Ciphertext: short}, &out), ErrDecrypt)
}

func TestSealer_WrongKeyFails(t *testing.T) {
	a, _ := NewSealer(testKeySource().Key())
	b, _ := NewSealer(NewKeySourceWithIterations("x", "y", 1000).Key())

	env, err := a.Seal("secret")
	require.NoError(t, err)
	var out string
	assert.ErrorIs(t, b.Open(env, &out), ErrDecrypt)
}

func TestDevicePair_Deterministic(t *testing.T) {
	a1 := seededPair(t, 1)
	a2 := seededPair(t, 1)
	b := seededPair(t, 2)

	assert.Equal(t, a1.Pub(), a2.Pub())
	assert.Equal(t, a1.EPub(), a2.EPub())
	assert.NotEqual(t, a1.Pub(), b.Pub())
	assert.Equal(t, a1.SelfKey(), a2.SelfKey())

	_, err := DevicePairFromSeed([]byte("short"))
	assert.Error(t, err)
}

func TestDevicePair_SignVerify(t *testing.T) {
	p := seededPair(t, 3)
	sig := p.Sign([]byte("payload"))
	assert.True(t, Verify(p.Pub(), []byte("payload"), sig))
	assert.False(t, Verify(p.Pub(), []byte("tampered"), sig))
	assert.False(t, Verify("not-a-key", []byte("payload"), sig))
}

func TestDevicePair_SharedKeyAgrees(t *testing.T) {
	alice := seededPair(t, 4)
	bob := seededPair(t, 5)

	ab, err := alice.SharedKey(bob.EPub())
	require.NoError(t, err)
	ba, err := bob.SharedKey(alice.EPub())
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	_, err = alice.SharedKey("garbage")
	assert.Error(t, err)
}

func TestDocumentKeys_ShareAndReceive(t *testing.T) {
	owner := seededPair(t, 6)
	collaborator := seededPair(t, 7)
	stranger := seededPair(t, 8)

	k1, err := DeriveDocumentKey("doc-1", owner)
	require.NoError(t, err)
	k2, _ := DeriveDocumentKey("doc-1", owner)
	k3, _ := DeriveDocumentKey("doc-2", owner)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	_, err = DeriveDocumentKey("", owner)
	assert.Error(t, err)

	shared, err := ShareDocumentKey(k1, collaborator.EPub(), owner)
	require.NoError(t, err)

	got, err := ReceiveDocumentKey(shared, owner.EPub(), collaborator)
	require.NoError(t, err)
	assert.Equal(t, k1, got)

	_, err = ReceiveDocumentKey(shared, owner.EPub(), stranger)
	assert.ErrorIs(t, err, ErrKeyShare)
}

func TestProperty_EncryptionIsNonDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	s, err := NewSealer(testKeySource().Key())
	require.NoError(t, err)

	properties.Property("same plaintext, different ciphertext, same decryption", prop.ForAll(
		func(text string) bool {
			e1, err1 := s.Seal(text)
			e2, err2 := s.Seal(text)
			if err1 != nil || err2 != nil || e1.Ciphertext == e2.Ciphertext {
				return false
			}
			var d1, d2 string
			if s.Open(e1, &d1) != nil || s.Open(e2, &d2) != nil {
				return false
			}
			return d1 == text && d2 == text
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
