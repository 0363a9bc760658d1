package middleware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/fides-protocol/fides/config"
	"github.com/fides-protocol/fides/models"
)

// tokenBlacklist stores revoked admin token IDs with their expiry time.
// This guards the registry service's own operator/admin session auth,
// a layer entirely separate from the agent-to-agent Ed25519 signature
// protocol enforced by SignatureAuth.
var (
	tokenBlacklist = make(map[string]time.Time)
	blacklistMutex sync.RWMutex
)

func init() {
	go cleanupBlacklist()
}

// cleanupBlacklist runs every hour to remove expired tokens from the blacklist.
func cleanupBlacklist() {
	for {
		time.Sleep(1 * time.Hour)

		blacklistMutex.Lock()
		now := time.Now()
		for tokenID, expiry := range tokenBlacklist {
			if now.After(expiry) {
				delete(tokenBlacklist, tokenID)
			}
		}
		blacklistMutex.Unlock()
	}
}

// RevokeToken adds a token to the blacklist. Should be called when an
// operator logs out.
func RevokeToken(tokenID string, expiryTime time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	tokenBlacklist[tokenID] = expiryTime
}

// IsTokenRevoked checks if a token is in the blacklist.
func IsTokenRevoked(tokenID string) bool {
	blacklistMutex.RLock()
	defer blacklistMutex.RUnlock()
	_, found := tokenBlacklist[tokenID]
	return found
}

// AdminAuth is a middleware that verifies the operator JWT issued by
// POST /admin/login, guarding the registry service's write-path admin
// endpoints. It is entirely separate from SignatureAuth, which is what
// authenticates agent-to-agent traffic.
func AdminAuth(secret string) fiber.Handler {
	secretKeyBytes := []byte(secret)

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header is required. Please include a Bearer token.")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization format. Format should be 'Bearer your-token'.")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secretKeyBytes, nil
		})
		if err != nil {
			if ve, ok := err.(*jwt.ValidationError); ok {
				switch {
				case ve.Errors&jwt.ValidationErrorMalformed != 0:
					return fiber.NewError(fiber.StatusUnauthorized, "Token is malformed")
				case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
					return fiber.NewError(fiber.StatusUnauthorized, "Token has expired or is not yet valid")
				case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
					return fiber.NewError(fiber.StatusUnauthorized, "Token signature is invalid")
				}
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		if !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(*models.AdminClaims)
		if !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to parse token claims")
		}
		if IsTokenRevoked(claims.ID) {
			return fiber.NewError(fiber.StatusUnauthorized, "Token has been revoked")
		}

		c.Locals("adminUsername", claims.Username)
		c.Locals("adminRole", claims.Role)
		c.Locals("adminClaims", claims)
		return c.Next()
	}
}

// LoggerMiddleware logs each request as a structured entry.
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		logEntry := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"duration":  duration.String(),
			"status":    c.Response().StatusCode(),
			"method":    c.Method(),
			"path":      c.Path(),
			"ip":        c.IP(),
		}
		if did, ok := c.Locals("agentDid").(string); ok {
			logEntry["agent_did"] = did
		}
		fmt.Printf("%+v\n", logEntry)

		return err
	}
}

// RateLimitMiddleware implements IP-based rate limiting for API
// endpoints, per cfg.RateLimitRequests / cfg.RateLimitDuration.
func RateLimitMiddleware(cfg *config.Config) fiber.Handler {
	maxRequests := cfg.RateLimitRequests
	windowDuration := time.Duration(cfg.RateLimitDuration) * time.Second

	type client struct {
		count     int
		lastReset time.Time
	}

	var (
		clients = make(map[string]*client)
		mu      sync.Mutex
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastReset) > windowDuration*2 {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		mu.Lock()
		defer mu.Unlock()

		cl, exists := clients[ip]
		if !exists {
			cl = &client{lastReset: time.Now()}
			clients[ip] = cl
		}
		if time.Since(cl.lastReset) > windowDuration {
			cl.count = 0
			cl.lastReset = time.Now()
		}
		cl.count++

		if cl.count > maxRequests {
			c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", fmt.Sprintf("%d", int(windowDuration.Seconds()-time.Since(cl.lastReset).Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "Rate limit exceeded")
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-cl.count))
		return c.Next()
	}
}

// ShuttingDown returns middleware that rejects new requests with 503
// once the shutdown drain window has started.
func ShuttingDown(draining *bool, mu *sync.RWMutex) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mu.RLock()
		down := *draining
		mu.RUnlock()
		if down {
			return fiber.NewError(fiber.StatusServiceUnavailable, "service is shutting down")
		}
		return c.Next()
	}
}
