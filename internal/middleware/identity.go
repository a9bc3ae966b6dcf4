package middleware

// identity.go holds the helpers that move the authenticated account between
// the Echo context, the request context and the handlers.

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ride-accounts/internal/model"
)

type accountKey struct{}

// WithAccount returns a copy of ctx carrying a.
func WithAccount(ctx context.Context, a *model.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// AccountFromContext returns the account stored by WithAccount, if any.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey{}).(*model.Account)
	return a, ok && a != nil
}

// AccountFrom returns the account attached by Authenticate.
func AccountFrom(c echo.Context) (*model.Account, bool) {
	a, ok := c.Get("account").(*model.Account)
	return a, ok && a != nil
}

// userID returns the authenticated account id, or "guest".
func userID(c echo.Context) string {
	if a, ok := AccountFrom(c); ok {
		return a.ID
	}
	return "guest"
}

func setAccount(c echo.Context, a *model.Account) {
	c.Set("account", a)
	c.Set("user_id", a.ID)
	c.Set("role", a.Role)
	c.SetRequest(c.Request().WithContext(WithAccount(c.Request().Context(), a)))
}
