package attestation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/identity"
)

func mustDID(t *testing.T, kp crypto.KeyPair) string {
	t.Helper()
	did, err := identity.Derive(kp.PublicKey[:])
	require.NoError(t, err)
	return did
}

func TestCreateAndVerify(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	issuerDID := mustDID(t, issuerKP)
	subjectDID := mustDID(t, subjectKP)

	att, err := Create(issuerDID, subjectDID, 75, issuerKP)
	require.NoError(t, err)

	assert.True(t, Verify(att, issuerKP.PublicKey[:]))
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	att, err := Create(mustDID(t, issuerKP), mustDID(t, subjectKP), 40, issuerKP)
	require.NoError(t, err)

	assert.False(t, Verify(att, otherKP.PublicKey[:]))
}

func TestVerifyRejectsTamperedTrustLevel(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	att, err := Create(mustDID(t, issuerKP), mustDID(t, subjectKP), 40, issuerKP)
	require.NoError(t, err)

	att.TrustLevel = 100
	assert.False(t, Verify(att, issuerKP.PublicKey[:]))
}

func TestVerifyRejectsTamperedSubject(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	attackerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	att, err := Create(mustDID(t, issuerKP), mustDID(t, subjectKP), 40, issuerKP)
	require.NoError(t, err)

	att.SubjectDID = mustDID(t, attackerKP)
	assert.False(t, Verify(att, issuerKP.PublicKey[:]))
}

func TestVerifyRejectsTamperedIssuedAt(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	att, err := Create(mustDID(t, issuerKP), mustDID(t, subjectKP), 40, issuerKP)
	require.NoError(t, err)

	att.IssuedAt = att.IssuedAt.Add(time.Hour)
	assert.False(t, Verify(att, issuerKP.PublicKey[:]))
}

func TestCreateRejectsOutOfRangeTrustLevel(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	subjectKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	_, err = Create(mustDID(t, issuerKP), mustDID(t, subjectKP), 101, issuerKP)
	assert.Error(t, err)

	_, err = Create(mustDID(t, issuerKP), mustDID(t, subjectKP), -1, issuerKP)
	assert.Error(t, err)
}

func TestCreateRejectsInvalidIdentifiers(t *testing.T) {
	issuerKP, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	_, err = Create("not-a-did", mustDID(t, issuerKP), 50, issuerKP)
	assert.Error(t, err)

	_, err = Create(mustDID(t, issuerKP), "not-a-did", 50, issuerKP)
	assert.Error(t, err)
}
