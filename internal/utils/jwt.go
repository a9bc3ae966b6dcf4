package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel errors
	"fmt"           // error wrapping
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // random token identifiers (jti)

	"github.com/iliyamo/ride-accounts/internal/model"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and
	// unexpected signing methods.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a well formed token past its exp.
	ErrTokenExpired = errors.New("token expired")
)

// TokenConfig holds the secrets and lifetimes used to sign tokens.  Access
// and refresh tokens use different secrets so one can never be replayed as
// the other.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Token is a signed JWT along with its expiry.
type Token struct {
	Raw string    // the serialized JWT string
	Exp time.Time // the UTC expiration time
}

// AccessClaims are embedded in access tokens: the account id in sub and
// the role used to pick the partition when the token comes back.
type AccessClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims are embedded in refresh tokens.  They only identify the
// account; the partition is implied by the route the token is sent to.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer builds an issuer from cfg.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// IssueAccessToken builds and signs an HS256 JWT carrying the account id
// (sub), its role, a random jti, iat and exp.
func (t *TokenIssuer) IssueAccessToken(id string, role model.Role) (Token, error) {
	now := t.now()
	exp := now.Add(t.cfg.AccessTTL)
	claims := AccessClaims{
		Role:             role,
		RegisteredClaims: registered(id, now, exp),
	}
	return sign(claims, t.cfg.AccessSecret, exp)
}

// IssueRefreshToken builds and signs the long lived refresh token.  The jti
// makes every refresh token unique, even two issued within one second.
func (t *TokenIssuer) IssueRefreshToken(id string) (Token, error) {
	now := t.now()
	exp := now.Add(t.cfg.RefreshTTL)
	claims := RefreshClaims{RegisteredClaims: registered(id, now, exp)}
	return sign(claims, t.cfg.RefreshSecret, exp)
}

// ParseAccessToken verifies signature and expiry of an access token.
func (t *TokenIssuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(raw, t.cfg.AccessSecret, claims); err != nil {
		return nil, err
	}
	if claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry of a refresh token.
func (t *TokenIssuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(raw, t.cfg.RefreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Only this digest is stored on the account.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func registered(id string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   id,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func sign(claims jwt.Claims, secret string, exp time.Time) (Token, error) {
	if secret == "" {
		return Token{}, errors.New("signing secret is empty")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Raw: signed, Exp: exp}, nil
}

func parse(raw, secret string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Type assert the signing method to HMAC; reject others.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !tok.Valid {
		return ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrInvalidToken
	}
	return nil
}
