package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

// RequireRole ensures the authenticated caller holds the given role.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if user.Role != role {
			return apperrors.NewForbidden(string(role) + " role required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller of any role is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
