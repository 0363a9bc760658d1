package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
)

func TestMemoryKeystoreSaveLoad(t *testing.T) {
	ks := NewMemoryKeystore()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, ks.Save("did:fides:abc", kp))

	loaded, err := ks.Load("did:fides:abc")
	require.NoError(t, err)
	assert.Equal(t, kp, loaded)
}

func TestMemoryKeystoreMissingKey(t *testing.T) {
	ks := NewMemoryKeystore()
	_, err := ks.Load("did:fides:nope")
	assert.Error(t, err)
}

func TestDiskKeystoreUnencryptedRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	ks, err := NewDiskKeystore(dir, "")
	require.NoError(t, err)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)

	require.NoError(t, ks.Save(did, kp))

	loaded, err := ks.Load(did)
	require.NoError(t, err)
	assert.Equal(t, kp, loaded)
}

func TestDiskKeystoreEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewDiskKeystore(dir, "correct horse battery staple")
	require.NoError(t, err)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)

	require.NoError(t, ks.Save(did, kp))

	loaded, err := ks.Load(did)
	require.NoError(t, err)
	assert.Equal(t, kp, loaded)
}

func TestDiskKeystoreWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewDiskKeystore(dir, "right-passphrase")
	require.NoError(t, err)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)
	require.NoError(t, ks.Save(did, kp))

	wrong, err := NewDiskKeystore(dir, "wrong-passphrase")
	require.NoError(t, err)

	_, err = wrong.Load(did)
	assert.Error(t, err)
}

func TestDiskKeystoreRejectsIdentifierMismatch(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewDiskKeystore(dir, "")
	require.NoError(t, err)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	did, err := Derive(kp.PublicKey[:])
	require.NoError(t, err)
	require.NoError(t, ks.Save(did, kp))

	other, err := Derive(mustOtherKey(t))
	require.NoError(t, err)

	// Place the first record's file contents at the path Load(other)
	// reads, so the stored identifier (did) differs from the requested
	// one (other); Load must refuse it rather than return the wrong key.
	raw, err := os.ReadFile(ks.path(did))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ks.path(other), raw, 0o600))

	_, err = ks.Load(other)
	assert.Error(t, err)
}

func mustOtherKey(t *testing.T) []byte {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp.PublicKey[:]
}
