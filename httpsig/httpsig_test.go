package httpsig

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/replay"
)

func newSignedRequest(t *testing.T, kp crypto.KeyPair, keyID string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://trust.example/v1/trust", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, Attach(req, body, kp, SignOptions{KeyID: keyID}))
	return req
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	body := []byte(`{"trustLevel":80}`)
	req := newSignedRequest(t, kp, "did:fides:signer", body)

	msg := NewRequestMessage(req, body)
	result := Verify(msg, kp.PublicKey[:], VerifyOptions{})

	assert.True(t, result.Valid)
	assert.Equal(t, "did:fides:signer", result.KeyID)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	body := []byte(`{"trustLevel":80}`)
	req := newSignedRequest(t, kp, "did:fides:signer", body)

	tampered := []byte(`{"trustLevel":99}`)
	msg := NewRequestMessage(req, tampered)
	result := Verify(msg, kp.PublicKey[:], VerifyOptions{})

	assert.False(t, result.Valid)
}

func TestVerifyRejectsTamperedComponent(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	req := newSignedRequest(t, kp, "did:fides:signer", nil)
	req.Header.Set("Content-Type", "text/plain")

	msg := NewRequestMessage(req, nil)
	result := Verify(msg, kp.PublicKey[:], VerifyOptions{})

	assert.False(t, result.Valid)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	req := newSignedRequest(t, kp, "did:fides:signer", nil)
	msg := NewRequestMessage(req, nil)

	result := Verify(msg, other.PublicKey[:], VerifyOptions{})
	assert.False(t, result.Valid)
}

func TestVerifyRejectsExpiredSignature(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://trust.example/v1/trust/did/score", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	require.NoError(t, Attach(req, nil, kp, SignOptions{KeyID: "did:fides:signer", ExpirySeconds: -3600}))

	msg := NewRequestMessage(req, nil)
	result := Verify(msg, kp.PublicKey[:], VerifyOptions{})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "expired")
}

func TestVerifyDetectsReplay(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	req := newSignedRequest(t, kp, "did:fides:signer", nil)
	msg := NewRequestMessage(req, nil)

	store := replay.New(replay.DefaultTTL)
	defer store.Close()

	first := Verify(msg, kp.PublicKey[:], VerifyOptions{NonceStore: store})
	assert.True(t, first.Valid)

	second := Verify(msg, kp.PublicKey[:], VerifyOptions{NonceStore: store})
	assert.False(t, second.Valid)
	assert.Equal(t, "replay detected", second.Error)
}

func TestVerifyRejectsAlgorithmDowngrade(t *testing.T) {
	si := SignatureInput{
		Label: "sig1",
		Params: SignatureParams{
			Components: []string{"@method"},
			Created:    0,
			Expires:    1 << 62,
			KeyID:      "did:fides:signer",
			Alg:        "hmac-sha256",
		},
	}
	req, err := http.NewRequest(http.MethodGet, "https://trust.example/v1/trust/did/score", nil)
	require.NoError(t, err)
	req.Header.Set("Signature-Input", SerializeSignatureInput(si))
	req.Header.Set("Signature", "sig1=:AAAA:")

	msg := NewRequestMessage(req, nil)
	result := Verify(msg, make([]byte, crypto.PublicKeySize), VerifyOptions{})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "unsupported signature algorithm")
}

func TestParseSignatureInputRoundTrip(t *testing.T) {
	si := SignatureInput{
		Label: "sig1",
		Params: SignatureParams{
			Components: []string{"@method", "@target-uri", "content-type"},
			Created:    1000,
			Expires:    1300,
			KeyID:      "did:fides:signer",
			Alg:        DefaultAlg,
			Nonce:      "abc123",
		},
	}

	serialized := SerializeSignatureInput(si)
	parsed, err := ParseSignatureInput(serialized)
	require.NoError(t, err)

	assert.Equal(t, si.Label, parsed.Label)
	if diff := cmp.Diff(si.Params, parsed.Params); diff != "" {
		t.Errorf("signature params changed across serialize/parse round trip (-want +got):\n%s", diff)
	}
}
