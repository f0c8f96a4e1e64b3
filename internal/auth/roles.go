package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

// RequireRole ensures the actor holds one of the allowed roles. Route-level
// guard only; the services repeat the capability checks they own.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
