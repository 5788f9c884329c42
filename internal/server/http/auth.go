package http

import (
	"kbodata/internal/server/core"

	"github.com/gofiber/fiber/v2"
	"github.com/lixenwraith/auth"
	"go.uber.org/zap"
)

// AdminKeyHeader carries the ingestion admin key
const AdminKeyHeader = "X-Admin-Key"

// AdminRequired guards ingestion routes with a key verified against an Argon2 hash.
// An empty hash disables the guard.
func AdminRequired(keyHash string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			return c.Next()
		}

		key := c.Get(AdminKeyHeader)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Status: core.StatusError,
				Error:  "missing admin key",
				Code:   core.ErrUnauthorized,
			})
		}

		if err := auth.VerifyPassword(key, keyHash); err != nil {
			log.Warn("admin key rejected", zap.String("ip", c.IP()), zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Status: core.StatusError,
				Error:  "invalid admin key",
				Code:   core.ErrUnauthorized,
			})
		}

		return c.Next()
	}
}
