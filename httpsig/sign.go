package httpsig

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fides-protocol/fides/crypto"
)

// DefaultTTLSeconds is the default signature lifetime (expires - created)
// when SignOptions.ExpirySeconds is zero.
const DefaultTTLSeconds = 300

// SignOptions customizes Sign. Zero values fall back to the documented
// defaults.
type SignOptions struct {
	KeyID         string   // required for non-anonymous signatures
	Components    []string // defaults to DefaultComponents
	ExpirySeconds int64    // defaults to DefaultTTLSeconds
	Label         string   // defaults to DefaultLabel
}

// SignedHeaders holds the headers a successful Sign call must attach to
// the outgoing request, in addition to whatever the caller already set.
type SignedHeaders struct {
	SignatureInput string
	Signature      string
	ContentDigest  string // empty when the request has no body
}

// overlayMessage presents msg's method/url/body unchanged but reports an
// additional Content-Digest header, so the signature base sees it
// without mutating the caller's own header map.
type overlayMessage struct {
	Message
	header http.Header
}

func (m overlayMessage) Header() http.Header { return m.header }

// Sign computes the signature headers for msg under kp. It does not mutate msg; callers attach the returned headers themselves
// (see Attach for the common case of a *http.Request).
func Sign(msg Message, kp crypto.KeyPair, opts SignOptions) (SignedHeaders, error) {
	components := opts.Components
	if len(components) == 0 {
		components = append([]string(nil), DefaultComponents...)
	} else {
		components = append([]string(nil), components...)
	}
	ttl := opts.ExpirySeconds
	if ttl == 0 {
		ttl = DefaultTTLSeconds
	}
	label := opts.Label
	if label == "" {
		label = DefaultLabel
	}

	effectiveHeader := msg.Header().Clone()
	if effectiveHeader == nil {
		effectiveHeader = http.Header{}
	}

	var headers SignedHeaders
	body := msg.Body()
	if len(body) > 0 {
		digest := crypto.SHA256(body)
		headers.ContentDigest = fmt.Sprintf("sha-256=:%s:", crypto.Base64Encode(digest[:]))
		effectiveHeader.Set("Content-Digest", headers.ContentDigest)
		components = append(components, "content-digest")
	}

	created := time.Now().Unix()
	params := SignatureParams{
		Components: components,
		Created:    created,
		Expires:    created + ttl,
		KeyID:      opts.KeyID,
		Alg:        DefaultAlg,
		Nonce:      uuid.NewString(),
	}

	base, err := BuildSignatureBase(overlayMessage{msg, effectiveHeader}, params)
	if err != nil {
		return SignedHeaders{}, err
	}

	sig := crypto.Sign([]byte(base), kp)

	headers.SignatureInput = SerializeSignatureInput(SignatureInput{Label: label, Params: params})
	headers.Signature = fmt.Sprintf("%s=:%s:", label, crypto.Base64Encode(sig))
	return headers, nil
}

// Attach signs req (whose body, if any, must already be buffered into
// body) and sets the resulting Signature-Input, Signature, and
// Content-Digest headers directly on req.
func Attach(req *http.Request, body []byte, kp crypto.KeyPair, opts SignOptions) error {
	msg := NewRequestMessage(req, body)
	headers, err := Sign(msg, kp, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Signature-Input", headers.SignatureInput)
	req.Header.Set("Signature", headers.Signature)
	if headers.ContentDigest != "" {
		req.Header.Set("Content-Digest", headers.ContentDigest)
	}
	return nil
}
