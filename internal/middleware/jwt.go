package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"  // sentinel matching for store and token errors
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
	"github.com/rs/zerolog"       // structured logging of store failures

	"github.com/iliyamo/ride-accounts/internal/metrics"
	"github.com/iliyamo/ride-accounts/internal/model"
	"github.com/iliyamo/ride-accounts/internal/repository"
	"github.com/iliyamo/ride-accounts/internal/service"
	"github.com/iliyamo/ride-accounts/internal/utils"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// Authenticate returns an Echo middleware that resolves the account behind
// an access token.  The token is read from the accessToken cookie first and
// from an `Authorization: Bearer` header otherwise.  The role claim selects
// the partition store; the account is loaded without its secrets and
// attached to the Echo context (`account`, `user_id`, `role`) and to the
// request context.
//
// Failures are returned as service errors so the HTTP error handler renders
// them in the usual envelope: no token or a bad token is 401, a valid token
// whose account (or role) no longer exists is 403, a store failure is 500.
func Authenticate(tokens *utils.TokenIssuer, stores map[model.Role]repository.AccountStore, logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				metrics.RecordAuthFailure("missing_token")
				return service.Unauthenticated("unauthorized request")
			}

			claims, err := tokens.ParseAccessToken(raw)
			if err != nil {
				metrics.RecordAuthFailure("invalid_token")
				if errors.Is(err, utils.ErrTokenExpired) {
					return service.Unauthenticated("access token expired")
				}
				return service.Unauthenticated("invalid access token")
			}

			store, ok := stores[claims.Role]
			if !ok {
				metrics.RecordAuthFailure("unknown_role")
				return service.Forbidden("invalid access token")
			}
			account, err := store.FindProfile(c.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					metrics.RecordAuthFailure("account_missing")
					return service.Forbidden("invalid access token")
				}
				logger.Error().Err(err).Str("account_id", claims.Subject).Msg("authenticate: load account failed")
				return service.Internal("something went wrong", err)
			}

			setAccount(c, account)
			return next(c)
		}
	}
}

// tokenFrom returns the access token of the request; the cookie wins over
// the Authorization header.
func tokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
		return strings.TrimSpace(ck.Value)
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
