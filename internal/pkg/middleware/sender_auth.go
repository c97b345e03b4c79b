package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// SenderAuthConfig restricts who may call the order-accepted webhook. Empty
// fields disable the corresponding check.
type SenderAuthConfig struct {
	Secret    string
	UserAgent string
}

// SenderAuthMiddleware checks the shared secret and the sender's user agent.
func SenderAuthMiddleware(cfg SenderAuthConfig) fiber.Handler {
	secret := strings.TrimSpace(cfg.Secret)
	userAgent := strings.TrimSpace(cfg.UserAgent)

	return func(c *fiber.Ctx) error {
		if userAgent != "" && !strings.Contains(c.Get(fiber.HeaderUserAgent), userAgent) {
			log.Warnf("[Intake] Rejected order webhook from %s: unexpected user agent", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown sender"})
		}

		if secret != "" {
			got := extractSecretFromHeader(c)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warnf("[Intake] Rejected order webhook from %s: invalid shared secret", c.IP())
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or missing secret"})
			}
		}

		return c.Next()
	}
}

func extractSecretFromHeader(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("X-Webhook-Secret")); v != "" {
		return v
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return auth
}
