// Package service implements the account operations shared by users and
// captains.  One AccountService is built per role descriptor.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ride-accounts/internal/metrics"
	"github.com/iliyamo/ride-accounts/internal/model"
	q "github.com/iliyamo/ride-accounts/internal/queue"
	"github.com/iliyamo/ride-accounts/internal/repository"
	"github.com/iliyamo/ride-accounts/internal/utils"
)

const invalidCredentials = "invalid email or password"

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	Access  utils.Token
	Refresh utils.Token
}

// Session is the result of a successful login.
type Session struct {
	Account *model.Account
	TokenPair
}

// AccountService bundles the dependencies of one role's operations.
type AccountService struct {
	desc   model.RoleDescriptor
	store  repository.AccountStore
	hasher *utils.PasswordHasher
	tokens *utils.TokenIssuer
	events EventPublisher
	logger *zerolog.Logger
}

// NewAccountService wires a service for desc.  A nil events publisher is
// replaced by NoopPublisher.
func NewAccountService(
	desc model.RoleDescriptor,
	store repository.AccountStore,
	hasher *utils.PasswordHasher,
	tokens *utils.TokenIssuer,
	events EventPublisher,
	logger *zerolog.Logger,
) *AccountService {
	if events == nil {
		events = NoopPublisher{}
	}
	l := logger.With().Str("role", string(desc.Role)).Logger()
	return &AccountService{desc: desc, store: store, hasher: hasher, tokens: tokens, events: events, logger: &l}
}

// Descriptor returns the role this service serves.
func (s *AccountService) Descriptor() model.RoleDescriptor { return s.desc }

func (s *AccountService) noun() string { return strings.ToLower(string(s.desc.Role)) }

// Register validates in, hashes the password once and persists a new
// account.  The returned account carries neither hash nor refresh digest.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	role := string(s.desc.Role)
	if !s.desc.RequiresUsername {
		in.Username = ""
	}
	if !s.desc.RequiresVehicle {
		in.Vehicle = nil
	}
	in.trim()
	if err := validateFor(s.desc, &in, in.Username, in.Vehicle, true); err != nil {
		metrics.RecordRegistration(role, metrics.OutcomeRejected)
		return nil, err
	}

	_, err := s.store.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		metrics.RecordRegistration(role, metrics.OutcomeRejected)
		return nil, Conflict(s.noun() + " with this email already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.internal("lookup by email failed", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.internal("hash password failed", err)
	}

	a := &model.Account{
		ID:           uuid.NewString(),
		FullName:     model.FullName{FirstName: in.FullName.FirstName, LastName: in.FullName.LastName},
		Email:        in.Email,
		Username:     in.Username,
		Vehicle:      in.Vehicle.toModel(),
		PasswordHash: hash,
	}
	if s.desc.RequiresVehicle {
		a.Status = model.StatusInactive
	}
	if err := s.store.Create(ctx, a); err != nil {
		if cerr := s.conflict(err); cerr != nil {
			metrics.RecordRegistration(role, metrics.OutcomeRejected)
			return nil, cerr
		}
		return nil, s.internal("create account failed", err)
	}

	metrics.RecordRegistration(role, metrics.OutcomeSuccess)
	s.logger.Info().Str("account_id", a.ID).Msg("account registered")
	s.publish(ctx, q.EventAccountRegistered, a)
	return a.Sanitized(), nil
}

// Login checks the credentials and starts a new session, overwriting any
// refresh token issued before.  Unknown email and wrong password produce
// the same error.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	role := string(s.desc.Role)
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateStruct(&in); err != nil {
		metrics.RecordLogin(role, metrics.OutcomeRejected)
		return nil, err
	}

	a, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLogin(role, metrics.OutcomeRejected)
			return nil, Unauthenticated(invalidCredentials)
		}
		return nil, s.internal("lookup by email failed", err)
	}
	if !s.hasher.Verify(ctx, in.Password, a.PasswordHash) {
		if ctx.Err() != nil {
			return nil, s.internal("verify password failed", ctx.Err())
		}
		metrics.RecordLogin(role, metrics.OutcomeRejected)
		return nil, Unauthenticated(invalidCredentials)
	}

	pair, err := s.issue(ctx, a.ID)
	if err != nil {
		metrics.RecordLogin(role, metrics.OutcomeError)
		return nil, err
	}
	metrics.RecordLogin(role, metrics.OutcomeSuccess)
	return &Session{Account: a.Sanitized(), TokenPair: *pair}, nil
}

// Logout clears the stored refresh token.  Logging out twice is fine.
func (s *AccountService) Logout(ctx context.Context, id string) error {
	if err := s.store.SetRefreshToken(ctx, id, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return s.internal("clear refresh token failed", err)
	}
	return nil
}

// Refresh exchanges the latest refresh token of an account for a new
// pair.  Any other token, including a previously rotated one, is rejected.
func (s *AccountService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	role := string(s.desc.Role)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		metrics.RecordRefresh(role, metrics.OutcomeRejected)
		return nil, Unauthenticated("unauthorized request")
	}

	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		metrics.RecordRefresh(role, metrics.OutcomeRejected)
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, Unauthenticated("refresh token expired")
		}
		return nil, Unauthenticated("invalid refresh token")
	}

	a, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordRefresh(role, metrics.OutcomeRejected)
			return nil, Unauthenticated("invalid refresh token")
		}
		return nil, s.internal("lookup by id failed", err)
	}
	digest := utils.HashRefreshRaw(raw)
	if a.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*a.RefreshToken), []byte(digest)) != 1 {
		metrics.RecordRefresh(role, metrics.OutcomeRejected)
		return nil, Unauthenticated("refresh token is expired or used")
	}

	pair, err := s.issue(ctx, a.ID)
	if err != nil {
		metrics.RecordRefresh(role, metrics.OutcomeError)
		return nil, err
	}
	metrics.RecordRefresh(role, metrics.OutcomeSuccess)
	return pair, nil
}

// Profile returns the sanitized form of an authenticated account.
func (s *AccountService) Profile(a *model.Account) *model.Account {
	return a.Sanitized()
}

// ChangePassword replaces the password after checking the old one.
func (s *AccountService) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	if err := ValidateStruct(&in); err != nil {
		return err
	}
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(s.noun() + " not found")
		}
		return s.internal("lookup by id failed", err)
	}
	if !s.hasher.Verify(ctx, in.OldPassword, a.PasswordHash) {
		if ctx.Err() != nil {
			return s.internal("verify password failed", ctx.Err())
		}
		return BadRequest("invalid old password")
	}
	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return s.internal("hash password failed", err)
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return s.internal("update password failed", err)
	}
	s.logger.Info().Str("account_id", id).Msg("password changed")
	s.publish(ctx, q.EventPasswordChanged, a)
	return nil
}

// UpdateProfile writes the editable fields of the account id.  The id is
// always the authenticated account's own.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*model.Account, error) {
	if !s.desc.RequiresUsername {
		in.Username = ""
	}
	if !s.desc.RequiresVehicle {
		in.Vehicle = nil
	}
	in.trim()
	if err := validateFor(s.desc, &in, in.Username, in.Vehicle, false); err != nil {
		return nil, err
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(s.noun() + " not found")
		}
		return nil, s.internal("lookup by id failed", err)
	}

	a.FullName = model.FullName{FirstName: in.FullName.FirstName, LastName: in.FullName.LastName}
	a.Email = in.Email
	if in.Username != "" {
		a.Username = in.Username
	}
	if in.Vehicle != nil {
		a.Vehicle = in.Vehicle.toModel()
	}
	if err := s.store.UpdateProfile(ctx, a); err != nil {
		if cerr := s.conflict(err); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(s.noun() + " not found")
		}
		return nil, s.internal("update profile failed", err)
	}

	updated, err := s.store.FindProfile(ctx, id)
	if err != nil {
		return nil, s.internal("reload profile failed", err)
	}
	return updated, nil
}

// issue signs a new pair and stores the refresh digest.  Nothing is
// returned unless the digest was persisted.
func (s *AccountService) issue(ctx context.Context, id string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(id, s.desc.Role)
	if err != nil {
		return nil, s.internal("failed to generate access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(id)
	if err != nil {
		return nil, s.internal("failed to generate refresh token", err)
	}
	digest := utils.HashRefreshRaw(refresh.Raw)
	if err := s.store.SetRefreshToken(ctx, id, &digest); err != nil {
		return nil, s.internal("store refresh token failed", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AccountService) conflict(err error) *Error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return Conflict(s.noun() + " with this email already exists")
	case errors.Is(err, repository.ErrUsernameExists):
		return Conflict("username is already taken")
	}
	return nil
}

// internal logs the cause and returns an error that does not expose it.
func (s *AccountService) internal(msg string, err error) *Error {
	s.logger.Error().Err(err).Msg(msg)
	return Internal("something went wrong", err)
}

func (s *AccountService) publish(ctx context.Context, typ string, a *model.Account) {
	ev := q.AccountEvent{
		Type:       typ,
		AccountID:  a.ID,
		Role:       string(s.desc.Role),
		Email:      a.Email,
		FirstName:  a.FullName.FirstName,
		LastName:   a.FullName.LastName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("type", typ).Str("account_id", a.ID).Msg("publish account event failed")
	}
}
