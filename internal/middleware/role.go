package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
	"github.com/rs/zerolog"

	"github.com/iliyamo/ride-accounts/internal/model"
	"github.com/iliyamo/ride-accounts/internal/service"
)

// RequireRole returns a middleware that only lets through accounts whose
// role is one of roles.  It must run after Authenticate, which stores the
// role under "role".  A captain token sent to a user route, or the other way
// round, ends with 403 Forbidden.
func RequireRole(logger *zerolog.Logger, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(model.Role)
			if !ok || !allowed[role] {
				logger.Debug().Str("user_id", userID(c)).Str("path", c.Path()).Msg("role not allowed on route")
				return service.Forbidden("forbidden")
			}
			return next(c)
		}
	}
}
