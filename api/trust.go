package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/fides-protocol/fides/config"
	"github.com/fides-protocol/fides/middleware"
	"github.com/fides-protocol/fides/models"
	"github.com/fides-protocol/fides/registry"
	"github.com/fides-protocol/fides/replay"
	"github.com/fides-protocol/fides/trust"
)

// TrustHandlers groups the trust graph service's dependencies.
type TrustHandlers struct {
	Service  *trust.Service
	Registry *registry.Store
	DB       healthPinger
}

// SetupTrustRoutes wires the trust graph service's HTTP surface.
// nonceStore backs replay protection for the agent-signed write path.
func SetupTrustRoutes(app *fiber.App, h *TrustHandlers, cfg *config.Config, nonceStore *replay.Store, resolver *registry.Resolver, breaker *registry.CircuitBreaker) {
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigin}))
	app.Use(middleware.RateLimitMiddleware(cfg))

	app.Get("/health", h.HealthCheck)

	v1 := app.Group("/v1")
	v1.Post("/trust", middleware.SignatureAuth(middleware.ResolveViaRegistry(h.Registry, resolver, breaker), nonceStore), h.CreateTrust)
	v1.Get("/trust/:did/score", h.GetScore)
	v1.Get("/trust/:from/:to", h.GetPath)
	v1.Get("/identities/:did", h.GetIdentity)
}

// HealthCheck reports liveness and database reachability.
func (h *TrustHandlers) HealthCheck(c *fiber.Ctx) error {
	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.HealthResponse{Status: "database unreachable"})
		}
	}
	return c.JSON(models.HealthResponse{Status: "ok"})
}

// CreateTrust handles POST /v1/trust.
func (h *TrustHandlers) CreateTrust(c *fiber.Ctx) error {
	var body models.CreateTrustRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	edge, err := h.Service.CreateTrust(ctx, trust.CreateTrustRequest{
		IssuerDID:  body.IssuerDID,
		SubjectDID: body.SubjectDID,
		TrustLevel: body.TrustLevel,
		Signature:  body.Signature,
		Payload:    body.Payload,
		ExpiresAt:  body.ExpiresAt,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(models.TrustEdgeResponse{
		ID:         edge.ID,
		IssuerDID:  edge.Source,
		SubjectDID: edge.Target,
		TrustLevel: edge.TrustLevel,
		CreatedAt:  edge.CreatedAt,
		ExpiresAt:  edge.ExpiresAt,
	})
}

// GetScore handles GET /v1/trust/:did/score.
func (h *TrustHandlers) GetScore(c *fiber.Ctx) error {
	did := c.Params("did")
	rep, err := h.Service.GetScore(did)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(models.ScoreResponse{
		DID:                did,
		Score:              rep.Score,
		DirectTrusters:     rep.DirectTrusters,
		TransitiveTrusters: rep.TransitiveTrusters,
	})
}

// GetPath handles GET /v1/trust/:from/:to. Always returns 200; Found
// indicates whether a path exists.
func (h *TrustHandlers) GetPath(c *fiber.Ctx) error {
	from := c.Params("from")
	to := c.Params("to")
	result, err := h.Service.FindPath(from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	hops := make([]models.PathHopResponse, 0, len(result.Path))
	for _, hop := range result.Path {
		hops = append(hops, models.PathHopResponse{DID: hop.DID, TrustLevel: hop.TrustLevel})
	}

	return c.JSON(models.PathResponse{
		From:            result.From,
		To:              result.To,
		Found:           result.Found,
		Path:            hops,
		CumulativeTrust: result.CumulativeTrust,
		Hops:            result.Hops,
	})
}

// GetIdentity handles GET /v1/identities/:did — this service's local
// view of an identity, per §4.9.6.
func (h *TrustHandlers) GetIdentity(c *fiber.Ctx) error {
	did := c.Params("did")
	rec, err := h.Registry.Get(did)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "identity not found")
	}
	return c.JSON(toIdentityResponse(rec))
}
