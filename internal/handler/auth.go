package handler

import (
	"context"  // provides context with cancellation for store calls
	"net/http" // HTTP status codes and cookies
	"strings"  // string manipulation utilities
	"time"     // timeouts for store calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/rs/zerolog"       // structured logging

	"github.com/iliyamo/ride-accounts/internal/middleware" // authenticated account lookup
	"github.com/iliyamo/ride-accounts/internal/model"      // account types
	"github.com/iliyamo/ride-accounts/internal/service"    // account operations and errors
	"github.com/iliyamo/ride-accounts/internal/utils"      // token type
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

const requestTimeout = 5 * time.Second

// AccountHandler bundles dependencies for the account endpoints of one role.
type AccountHandler struct {
	svc          *service.AccountService
	secureCookie bool
	logger       *zerolog.Logger
}

func NewAccountHandler(svc *service.AccountService, secureCookie bool, logger *zerolog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, secureCookie: secureCookie, logger: logger}
}

// ----- DTOs -----

type refreshReq struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type loginResp struct {
	User         *model.Account `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type tokensResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *AccountHandler) noun() string {
	return strings.ToLower(string(h.svc.Descriptor().Role))
}

// Register: create an account; no tokens are issued.
func (h *AccountHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return service.BadRequest("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.svc.Register(ctx, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, a, h.noun()+" registered successfully")
}

// Login: verify credentials, set both cookies and return the pair.
func (h *AccountHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return service.BadRequest("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, err := h.svc.Login(ctx, in)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, sess.Access, sess.Refresh)
	return respond(c, http.StatusOK, loginResp{
		User:         sess.Account,
		AccessToken:  sess.Access.Raw,
		RefreshToken: sess.Refresh.Raw,
	}, h.noun()+" logged in successfully")
}

// Logout: clear the stored refresh token and both cookies (protected).
func (h *AccountHandler) Logout(c echo.Context) error {
	a, err := current(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Logout(ctx, a.ID); err != nil {
		return err
	}
	h.clearTokenCookies(c)
	return respond(c, http.StatusOK, echo.Map{}, h.noun()+" logged out successfully")
}

// Profile: the authenticated account (protected).
func (h *AccountHandler) Profile(c echo.Context) error {
	a, err := current(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, h.svc.Profile(a), "current "+h.noun()+" fetched successfully")
}

// RefreshToken: exchange the refresh token from the cookie, or from the
// body when no cookie is sent, for a new pair.
func (h *AccountHandler) RefreshToken(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(RefreshTokenCookie); err == nil {
		raw = strings.TrimSpace(ck.Value)
	}
	if raw == "" {
		var req refreshReq
		_ = c.Bind(&req)
		raw = req.RefreshToken
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.svc.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, pair.Access, pair.Refresh)
	return respond(c, http.StatusOK, tokensResp{
		AccessToken:  pair.Access.Raw,
		RefreshToken: pair.Refresh.Raw,
	}, "access token refreshed")
}

// ChangePassword: replace the password after checking the old one (protected).
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	a, err := current(c)
	if err != nil {
		return err
	}
	var in service.ChangePasswordInput
	if err := c.Bind(&in); err != nil {
		return service.BadRequest("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.ChangePassword(ctx, a.ID, in); err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{}, "password changed successfully")
}

// UpdateAccount: edit name, email, username or vehicle of the
// authenticated account (protected).
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	a, err := current(c)
	if err != nil {
		return err
	}
	var in service.UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return service.BadRequest("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	updated, err := h.svc.UpdateProfile(ctx, a.ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, updated, "account details updated successfully")
}

func current(c echo.Context) (*model.Account, error) {
	a, ok := middleware.AccountFrom(c)
	if !ok {
		return nil, service.Unauthenticated("unauthorized request")
	}
	return a, nil
}

func (h *AccountHandler) setTokenCookies(c echo.Context, access, refresh utils.Token) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, access.Raw, access.Exp))
	c.SetCookie(h.cookie(RefreshTokenCookie, refresh.Raw, refresh.Exp))
}

func (h *AccountHandler) clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		ck := h.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (h *AccountHandler) cookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secureCookie,
	}
}
