package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ride-accounts/internal/model"
	"github.com/iliyamo/ride-accounts/internal/repository"
	"github.com/iliyamo/ride-accounts/internal/service"
	"github.com/iliyamo/ride-accounts/internal/utils"
)

// erroringStore fails every profile lookup.
type erroringStore struct {
	repository.AccountStore
}

func (erroringStore) FindProfile(context.Context, string) (*model.Account, error) {
	return nil, errors.New("connection refused")
}

type authFixture struct {
	tokens *utils.TokenIssuer
	stores map[model.Role]repository.AccountStore
	logger zerolog.Logger
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	tokens := utils.NewTokenIssuer(utils.TokenConfig{
		AccessSecret: "a", AccessTTL: time.Minute,
		RefreshSecret: "r", RefreshTTL: time.Hour,
	})
	users := repository.NewMemoryAccountRepo(model.UserRole)
	captains := repository.NewMemoryAccountRepo(model.CaptainRole)
	digest := "digest"
	require.NoError(t, users.Create(context.Background(), &model.Account{ID: "u1", Email: "a@x.com", Username: "ann", PasswordHash: "h", RefreshToken: &digest}))
	require.NoError(t, captains.Create(context.Background(), &model.Account{ID: "c1", Email: "c@x.com", PasswordHash: "h"}))
	return authFixture{
		tokens: tokens,
		stores: map[model.Role]repository.AccountStore{model.RoleUser: users, model.RoleCaptain: captains},
		logger: zerolog.Nop(),
	}
}

// run passes req through Authenticate (and extra middleware) and returns
// the account seen by the final handler along with the error.
func (f authFixture) run(req *http.Request, extra ...echo.MiddlewareFunc) (*model.Account, error) {
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var seen *model.Account
	h := func(c echo.Context) error {
		a, ok := AccountFrom(c)
		if ok {
			ctxAccount, ctxOK := AccountFromContext(c.Request().Context())
			if !ctxOK || ctxAccount != a {
				return errors.New("request context not populated")
			}
			seen = a
		}
		return c.NoContent(http.StatusOK)
	}
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	h = Authenticate(f.tokens, f.stores, &f.logger)(h)
	err := h(c)
	return seen, err
}

func kindOf(t *testing.T, err error) service.Kind {
	t.Helper()
	var se *service.Error
	require.True(t, errors.As(err, &se), "got %v", err)
	return se.Kind
}

func bearer(raw string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
	return req
}

func TestAuthenticate_Bearer(t *testing.T) {
	f := newAuthFixture(t)
	tok, err := f.tokens.IssueAccessToken("u1", model.RoleUser)
	require.NoError(t, err)

	seen, err := f.run(bearer(tok.Raw))
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
	assert.Equal(t, model.RoleUser, seen.Role)
	assert.Empty(t, seen.PasswordHash)
	assert.Nil(t, seen.RefreshToken)
}

func TestAuthenticate_CookieWins(t *testing.T) {
	f := newAuthFixture(t)
	tok, err := f.tokens.IssueAccessToken("c1", model.RoleCaptain)
	require.NoError(t, err)

	req := bearer("not-a-token")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Raw})
	seen, err := f.run(req)
	require.NoError(t, err)
	assert.Equal(t, "c1", seen.ID)
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ghost, err := f.tokens.IssueAccessToken("ghost", model.RoleUser)
	require.NoError(t, err)
	alien, err := f.tokens.IssueAccessToken("u1", model.Role("Admin"))
	require.NoError(t, err)
	refresh, err := f.tokens.IssueRefreshToken("u1")
	require.NoError(t, err)
	expired, err := utils.NewTokenIssuer(utils.TokenConfig{
		AccessSecret: "a", AccessTTL: -time.Minute, RefreshSecret: "r", RefreshTTL: time.Hour,
	}).IssueAccessToken("u1", model.RoleUser)
	require.NoError(t, err)

	basic := httptest.NewRequest(http.MethodGet, "/", nil)
	basic.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwYXNz")

	tests := []struct {
		name string
		req  *http.Request
		want service.Kind
	}{
		{"no token", httptest.NewRequest(http.MethodGet, "/", nil), service.KindUnauthenticated},
		{"non bearer scheme", basic, service.KindUnauthenticated},
		{"garbage", bearer("x.y.z"), service.KindUnauthenticated},
		{"refresh token", bearer(refresh.Raw), service.KindUnauthenticated},
		{"expired", bearer(expired.Raw), service.KindUnauthenticated},
		{"missing account", bearer(ghost.Raw), service.KindForbidden},
		{"unknown role", bearer(alien.Raw), service.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, err := f.run(tt.req)
			assert.Equal(t, tt.want, kindOf(t, err))
			assert.Nil(t, seen)
		})
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.stores[model.RoleUser] = erroringStore{f.stores[model.RoleUser]}
	tok, err := f.tokens.IssueAccessToken("u1", model.RoleUser)
	require.NoError(t, err)

	_, err = f.run(bearer(tok.Raw))
	assert.Equal(t, service.KindInternal, kindOf(t, err))
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	captain, err := f.tokens.IssueAccessToken("c1", model.RoleCaptain)
	require.NoError(t, err)
	user, err := f.tokens.IssueAccessToken("u1", model.RoleUser)
	require.NoError(t, err)
	onlyUsers := RequireRole(&f.logger, model.RoleUser)

	seen, err := f.run(bearer(user.Raw), onlyUsers)
	require.NoError(t, err)
	assert.Equal(t, "u1", seen.ID)

	seen, err = f.run(bearer(captain.Raw), onlyUsers)
	assert.Equal(t, service.KindForbidden, kindOf(t, err))
	assert.Nil(t, seen)
}
