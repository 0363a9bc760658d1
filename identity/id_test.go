package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
)

func TestDeriveAndParseRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)
	assert.Contains(t, did, Prefix)

	pk, err := Parse(did)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey[:], pk)
}

func TestDeriveRejectsWrongKeyLength(t *testing.T) {
	_, err := Derive([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	_, err := Parse("not-a-did")
	assert.Error(t, err)
}

func TestParseRejectsBadBase58(t *testing.T) {
	_, err := Parse(Prefix + "0OIl")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)

	assert.True(t, IsValid(did))
	assert.False(t, IsValid("did:fides:garbage"))
	assert.False(t, IsValid(""))
}
