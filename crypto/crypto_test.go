package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndSignVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello fides")
	sig := Sign(msg, kp)
	assert.True(t, Verify(msg, sig, kp.PublicKey[:]))

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0xFF
	assert.False(t, Verify(tampered, sig, kp.PublicKey[:]))
}

func TestKeyPairFromSeedIsDeterministic(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)

	kp2, err := KeyPairFromSeed(kp1.Seed[:])
	require.NoError(t, err)

	assert.Equal(t, kp1.PublicKey, kp2.PublicKey)
}

func TestSignWithSeedMatchesSign(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("sign with seed")
	sig1 := Sign(msg, kp)
	sig2, err := SignWithSeed(msg, kp.Seed[:])
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)
}

func TestCodecsRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0xFF, 0x00}

	assert.Equal(t, data, mustBase58(t, Base58Encode(data)))
	assert.Equal(t, data, mustBase64(t, Base64Encode(data)))
	assert.Equal(t, data, mustHex(t, HexEncode(data)))
}

func mustBase58(t *testing.T, s string) []byte {
	t.Helper()
	b, err := Base58Decode(s)
	require.NoError(t, err)
	return b
}

func mustBase64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := Base64Decode(s)
	require.NoError(t, err)
	return b
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := HexDecode(s)
	require.NoError(t, err)
	return b
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("ab")))
	assert.True(t, ConstantTimeEqualString("did:fides:x", "did:fides:x"))
	assert.False(t, ConstantTimeEqualString("did:fides:x", "did:fides:y"))
}
