package httpsig

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/replay"
)

// DefaultClockDriftSeconds is the default freshness tolerance applied
// only on the expiry side: a signature whose expires lies up to this many
// seconds in the past is still accepted, to absorb clock skew between
// hosts. The created parameter is not checked.
const DefaultClockDriftSeconds = 30

// VerifyOptions customizes Verify.
type VerifyOptions struct {
	NonceStore        *replay.Store // optional; enables replay protection
	ClockDriftSeconds int64         // defaults to DefaultClockDriftSeconds
}

// VerifyResult is the tagged outcome of a verification attempt. Ordinary
// verification failures are reported here, never via a returned error —
// callers branch on Valid instead of using try/catch-style control flow.
type VerifyResult struct {
	Valid bool
	KeyID string
	Error string
}

var sigValueRE = regexp.MustCompile(`([A-Za-z0-9_-]+)=:([A-Za-z0-9+/=]+):`)

func fail(reason string) VerifyResult {
	return VerifyResult{Valid: false, Error: reason}
}

// Verify checks msg's Signature/Signature-Input headers under pk: it
// parses Signature-Input, rejects unsupported algorithms and expired
// signatures, checks the nonce against opts.NonceStore if set, rebuilds
// the signature base from the covered components, verifies the Ed25519
// signature over that base, and checks Content-Digest against the body
// when both are present. It never panics or
// returns a Go error for a routine verification failure.
func Verify(msg Message, pk []byte, opts VerifyOptions) VerifyResult {
	if len(pk) != crypto.PublicKeySize {
		return fail("invalid public key length")
	}

	sigHeader := headerValue(msg.Header(), "Signature")
	sigInputHeader := headerValue(msg.Header(), "Signature-Input")
	if sigHeader == "" || sigInputHeader == "" {
		return fail("missing signature")
	}

	si, err := ParseSignatureInput(sigInputHeader)
	if err != nil {
		return fail(err.Error())
	}

	if si.Params.Alg != DefaultAlg {
		return fail(fmt.Sprintf("unsupported signature algorithm %q", si.Params.Alg))
	}

	drift := opts.ClockDriftSeconds
	if drift == 0 {
		drift = DefaultClockDriftSeconds
	}
	now := time.Now().Unix()
	if si.Params.Expires+drift < now {
		return fail("signature expired")
	}

	if opts.NonceStore != nil && si.Params.Nonce != "" {
		if !opts.NonceStore.Check(si.Params.Nonce) {
			return fail("replay detected")
		}
	}

	m := sigValueRE.FindStringSubmatch(sigHeader)
	if m == nil || m[1] != si.Label {
		return fail("malformed signature header")
	}
	sigBytes, err := crypto.Base64Decode(m[2])
	if err != nil {
		return fail("malformed signature encoding")
	}

	base, err := BuildSignatureBase(msg, si.Params)
	if err != nil {
		return fail(err.Error())
	}

	if !crypto.Verify([]byte(base), sigBytes, pk) {
		return fail("signature verification failed")
	}

	body := msg.Body()
	digestHeader := headerValue(msg.Header(), "Content-Digest")
	if digestHeader != "" && len(body) > 0 {
		want, err := extractSHA256Digest(digestHeader)
		if err != nil {
			return fail(err.Error())
		}
		got := crypto.SHA256(body)
		if !crypto.ConstantTimeEqual(want, got[:]) {
			return fail("Content-Digest mismatch")
		}
	}

	return VerifyResult{Valid: true, KeyID: si.Params.KeyID}
}

func headerValue(h http.Header, name string) string {
	if h == nil {
		return ""
	}
	return h.Get(name)
}

var digestRE = regexp.MustCompile(`sha-256=:([A-Za-z0-9+/=]+):`)

func extractSHA256Digest(header string) ([]byte, error) {
	m := digestRE.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("unsupported Content-Digest format")
	}
	return crypto.Base64Decode(m[1])
}
