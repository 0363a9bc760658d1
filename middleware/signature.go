package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fides-protocol/fides/httpsig"
	"github.com/fides-protocol/fides/registry"
	"github.com/fides-protocol/fides/replay"
)

// fiberMessage adapts a *fiber.Ctx's incoming request to httpsig.Message,
// so the same RFC 9421 canonicalizer and verifier used by the client
// signer can check inbound requests without depending on net/http.
type fiberMessage struct {
	c *fiber.Ctx
}

func (m fiberMessage) Method() string { return m.c.Method() }

func (m fiberMessage) URL() *url.URL {
	u := &url.URL{
		Scheme:   m.c.Protocol(),
		Host:     string(m.c.Request().Host()),
		Path:     m.c.Path(),
		RawQuery: string(m.c.Request().URI().QueryString()),
	}
	return u
}

func (m fiberMessage) Header() http.Header {
	h := make(http.Header)
	m.c.Request().Header.VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})
	return h
}

func (m fiberMessage) Body() []byte { return m.c.Body() }

// SignatureAuth returns Fiber middleware enforcing RFC 9421 request
// signing: the caller's identifier is resolved through resolve, the
// request is verified under its public key, and on success the
// identifier is made available to the handler via Locals("agentDid").
// nonceStore is always supplied server-side, making replay protection
// mandatory even though httpsig.Verify treats it as optional.
func SignatureAuth(resolve func(keyID string) ([]byte, error), nonceStore *replay.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		sigInput := c.Get("Signature-Input")
		if sigInput == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Signature-Input header")
		}
		parsed, err := httpsig.ParseSignatureInput(sigInput)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "malformed Signature-Input header")
		}

		pk, err := resolve(parsed.Params.KeyID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unknown signing key")
		}

		result := httpsig.Verify(fiberMessage{c: c}, pk, httpsig.VerifyOptions{
			NonceStore:        nonceStore,
			ClockDriftSeconds: 30,
		})
		if !result.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, result.Error)
		}

		c.Locals("agentDid", result.KeyID)
		return c.Next()
	}
}

// ResolveViaRegistry builds a key resolver from a registry store,
// falling back to remote resolution through resolver/breaker when the
// identifier is not yet known locally.
func ResolveViaRegistry(reg *registry.Store, resolver *registry.Resolver, breaker *registry.CircuitBreaker) func(string) ([]byte, error) {
	return func(did string) ([]byte, error) {
		if reg != nil {
			if rec, err := reg.Get(did); err == nil {
				return rec.PublicKey, nil
			}
		}
		if resolver == nil || breaker == nil {
			return nil, registry.ErrNotFound
		}
		if err := breaker.Allow(); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		rec, err := resolver.Resolve(ctx, did)
		if err != nil {
			breaker.RecordFailure()
			return nil, err
		}
		breaker.RecordSuccess()
		return rec.PublicKey, nil
	}
}
