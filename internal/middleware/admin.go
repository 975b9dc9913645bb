package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	ActorKey    = "actor"
	ActorHeader = "X-Admin-Actor"
)

// BearerSecret guards operator and cron endpoints with a shared secret sent
// as "Authorization: Bearer <secret>". An empty secret rejects everything.
func BearerSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if secret == "" || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}

		actor := strings.TrimSpace(c.Get(ActorHeader))
		if actor == "" {
			actor = "system"
		}
		c.Locals(ActorKey, actor)

		return c.Next()
	}
}

// GetActor returns who is performing an admin operation
func GetActor(c *fiber.Ctx) string {
	actor, ok := c.Locals(ActorKey).(string)
	if !ok || actor == "" {
		return "system"
	}
	return actor
}
