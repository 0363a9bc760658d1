package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
	"github.com/fides-protocol/fides/identity"
)

// TestRegisterRejectsHijackAttempt exercises Register's identity-hijack
// defense, which runs before any database access: a did whose encoded
// public key does not match the supplied key is rejected immediately,
// so this needs no live database.
func TestRegisterRejectsHijackAttempt(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := identity.Derive(kp.PublicKey[:])
	require.NoError(t, err)

	attackerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	store := &Store{}
	_, err = store.Register(did, attackerKP.PublicKey[:], "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestRegisterRejectsMalformedIdentifier(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	store := &Store{}
	_, err = store.Register("not-a-did", kp.PublicKey[:], "", nil)
	assert.Error(t, err)
}

// TestRegisterRejectsWrongLengthPublicKey covers a publicKey that decodes
// as valid hex but is the wrong length: this must fail as a malformed
// request, not fall through to the constant-time hijack comparison and
// come out looking like a DID/key mismatch.
func TestRegisterRejectsWrongLengthPublicKey(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := identity.Derive(kp.PublicKey[:])
	require.NoError(t, err)

	short := kp.PublicKey[:16]

	store := &Store{}
	_, err = store.Register(did, short, "", nil)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindKey, kind)
	assert.NotErrorIs(t, err, ErrMismatch)
}
