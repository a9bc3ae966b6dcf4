package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/ride-accounts/internal/model"
)

// AccountStore persists the accounts of a single partition.  Every
// implementation normalizes emails (trimmed, lower case) on both write and
// lookup, stamps CreatedAt/UpdatedAt, and never hashes anything: the
// account service hands over the finished bcrypt hash.
type AccountStore interface {
	// Create inserts a new account.  The caller assigns ID and
	// PasswordHash.  Duplicates yield ErrEmailExists or ErrUsernameExists.
	Create(ctx context.Context, a *model.Account) error
	// GetByEmail returns the full record, hash and refresh digest included.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// GetByID returns the full record, hash and refresh digest included.
	GetByID(ctx context.Context, id string) (*model.Account, error)
	// FindProfile returns the record without hash and refresh digest.
	FindProfile(ctx context.Context, id string) (*model.Account, error)
	// SetRefreshToken overwrites the single refresh token slot; nil clears it.
	SetRefreshToken(ctx context.Context, id string, digest *string) error
	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, id, hash string) error
	// UpdateProfile writes name, email, username and vehicle of a.
	UpdateProfile(ctx context.Context, a *model.Account) error
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername is the canonical form of usernames.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
