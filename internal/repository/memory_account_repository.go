package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/ride-accounts/internal/model"
)

// MemoryAccountRepo keeps a partition in process memory.  It backs
// STORE_DRIVER=memory for local runs and the tests of the layers above.
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	role     model.Role
	accounts map[string]*model.Account
}

var _ AccountStore = (*MemoryAccountRepo)(nil)

// NewMemoryAccountRepo returns an empty store for the descriptor's partition.
func NewMemoryAccountRepo(desc model.RoleDescriptor) *MemoryAccountRepo {
	return &MemoryAccountRepo{role: desc.Role, accounts: make(map[string]*model.Account)}
}

func (r *MemoryAccountRepo) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.Email = NormalizeEmail(a.Email)
	a.Username = NormalizeUsername(a.Username)
	if err := r.checkUnique(a); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.Role = r.role
	a.CreatedAt, a.UpdatedAt = now, now
	r.accounts[a.ID] = clone(a)
	return nil
}

func (r *MemoryAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, a := range r.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryAccountRepo) FindProfile(ctx context.Context, id string) (*model.Account, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Sanitized(), nil
}

func (r *MemoryAccountRepo) SetRefreshToken(_ context.Context, id string, digest *string) error {
	return r.mutate(id, func(a *model.Account) error {
		if digest == nil {
			a.RefreshToken = nil
			return nil
		}
		d := *digest
		a.RefreshToken = &d
		return nil
	})
}

func (r *MemoryAccountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(a *model.Account) error {
		a.PasswordHash = hash
		return nil
	})
}

func (r *MemoryAccountRepo) UpdateProfile(_ context.Context, in *model.Account) error {
	email := NormalizeEmail(in.Email)
	username := NormalizeUsername(in.Username)
	return r.mutate(in.ID, func(a *model.Account) error {
		probe := &model.Account{ID: a.ID, Email: email, Username: username}
		if err := r.checkUnique(probe); err != nil {
			return err
		}
		a.FullName = in.FullName
		a.Email = email
		a.Username = username
		if in.Vehicle != nil {
			v := *in.Vehicle
			a.Vehicle = &v
		}
		return nil
	})
}

// mutate applies fn to the stored account under the write lock and bumps
// UpdatedAt when fn succeeds.
func (r *MemoryAccountRepo) mutate(id string, fn func(*model.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// checkUnique must be called with the write lock held.
func (r *MemoryAccountRepo) checkUnique(a *model.Account) error {
	for id, other := range r.accounts {
		if id == a.ID {
			continue
		}
		if other.Email == a.Email {
			return ErrEmailExists
		}
		if a.Username != "" && other.Username == a.Username {
			return ErrUsernameExists
		}
	}
	return nil
}

func clone(a *model.Account) *model.Account {
	out := *a
	if a.Vehicle != nil {
		v := *a.Vehicle
		out.Vehicle = &v
	}
	if a.RefreshToken != nil {
		t := *a.RefreshToken
		out.RefreshToken = &t
	}
	if a.SocketID != nil {
		s := *a.SocketID
		out.SocketID = &s
	}
	return &out
}
