package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fides-protocol/fides/config"
	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
	"github.com/fides-protocol/fides/middleware"
	"github.com/fides-protocol/fides/models"
	"github.com/fides-protocol/fides/registry"
)

// RegistryHandlers groups the identity discovery registry's dependencies.
type RegistryHandlers struct {
	Store *registry.Store
	Self  models.WellKnownDocument
	DB    healthPinger
}

// healthPinger is the capability HealthCheck needs to verify database
// reachability, satisfied by *sql.DB.
type healthPinger interface {
	Ping() error
}

// SetupRegistryRoutes wires the registry service's HTTP surface.
func SetupRegistryRoutes(app *fiber.App, h *RegistryHandlers, cfg *config.Config) {
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigin}))
	app.Use(middleware.RateLimitMiddleware(cfg))

	app.Get("/health", h.HealthCheck)
	app.Get("/.well-known/fides.json", h.WellKnown)

	app.Post("/identities", h.RegisterIdentity)
	app.Get("/identities/:did", h.GetIdentity)
	app.Get("/identities", h.ListIdentities)

	admin := app.Group("/admin")
	admin.Post("/login", h.AdminLogin(cfg))
	admin.Post("/logout", middleware.AdminAuth(cfg.AdminJWTSecret), h.AdminLogout)
}

// HealthCheck reports liveness and database reachability.
func (h *RegistryHandlers) HealthCheck(c *fiber.Ctx) error {
	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.HealthResponse{Status: "database unreachable"})
		}
	}
	return c.JSON(models.HealthResponse{Status: "ok"})
}

// WellKnown serves this service's own discovery document.
func (h *RegistryHandlers) WellKnown(c *fiber.Ctx) error {
	return c.JSON(h.Self)
}

// RegisterIdentity handles POST /identities.
func (h *RegistryHandlers) RegisterIdentity(c *fiber.Ctx) error {
	var req models.RegisterIdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.DID == "" || req.PublicKey == "" {
		return fiber.NewError(fiber.StatusBadRequest, "did and publicKey are required")
	}

	pk, err := crypto.HexDecode(req.PublicKey)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "publicKey must be hex-encoded")
	}

	rec, err := h.Store.Register(req.DID, pk, req.Domain, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrDuplicate):
			return fiber.NewError(fiber.StatusConflict, "identity already registered")
		case errors.Is(err, registry.ErrMismatch):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case kindIs(err, errs.KindKey):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	return c.Status(fiber.StatusCreated).JSON(toIdentityResponse(rec))
}

// GetIdentity handles GET /identities/:did.
func (h *RegistryHandlers) GetIdentity(c *fiber.Ctx) error {
	did := c.Params("did")
	rec, err := h.Store.Get(did)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "identity not found")
	}
	return c.JSON(toIdentityResponse(rec))
}

// ListIdentities handles GET /identities?domain=X.
func (h *RegistryHandlers) ListIdentities(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return fiber.NewError(fiber.StatusBadRequest, "domain query parameter is required")
	}
	recs, err := h.Store.ListByDomain(domain)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	out := make([]models.IdentityResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toIdentityResponse(rec))
	}
	return c.JSON(SuccessResponse{Success: true, Data: out})
}

// adminLoginRequest is the body of POST /admin/login.
type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin authenticates the registry service's single operator
// account and issues a short-lived JWT guarding write-path admin
// endpoints, separate from the agent signature protocol.
func (h *RegistryHandlers) AdminLogin(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req adminLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
		if req.Username != cfg.AdminUsername || cfg.AdminPasswordHash == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}

		now := time.Now()
		claims := models.AdminClaims{
			Username: req.Username,
			Role:     "operator",
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.AdminJWTSecret))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to issue session token")
		}

		return c.JSON(SuccessResponse{Success: true, Data: map[string]string{"token": signed}})
	}
}

// AdminLogout revokes the bearer token presented in this request.
func (h *RegistryHandlers) AdminLogout(c *fiber.Ctx) error {
	claims, ok := c.Locals("adminClaims").(*models.AdminClaims)
	if ok && claims.ExpiresAt != nil {
		middleware.RevokeToken(claims.ID, claims.ExpiresAt.Time)
	}
	return c.JSON(SuccessResponse{Success: true, Message: "logged out"})
}

func toIdentityResponse(rec registry.Record) models.IdentityResponse {
	return models.IdentityResponse{
		DID:       rec.DID,
		PublicKey: crypto.HexEncode(rec.PublicKey),
		Domain:    rec.Domain,
		Metadata:  rec.Metadata,
		FirstSeen: rec.FirstSeen,
		LastSeen:  rec.LastSeen,
	}
}

func kindIs(err error, kind errs.Kind) bool {
	k, ok := errs.KindOf(err)
	return ok && k == kind
}
