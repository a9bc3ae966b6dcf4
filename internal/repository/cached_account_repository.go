package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ride-accounts/internal/config"
	"github.com/iliyamo/ride-accounts/internal/model"
)

// CachedAccountStore puts a Redis read-through cache in front of
// FindProfile, which the session authenticator calls on every protected
// request.  Only sanitized profiles are cached: the JSON form of an
// Account never carries the hash or the refresh digest.  Writes that change
// the profile drop the cached entry; Redis failures fall through to the
// wrapped store.
type CachedAccountStore struct {
	AccountStore
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zerolog.Logger
}

// NewCachedAccountStore wraps inner.  When the cache is disabled or rdb is
// nil the inner store is returned unchanged.
func NewCachedAccountStore(inner AccountStore, rdb *redis.Client, cfg config.CacheConfig, desc model.RoleDescriptor, logger *zerolog.Logger) AccountStore {
	if !cfg.Enabled || rdb == nil {
		return inner
	}
	return &CachedAccountStore{
		AccountStore: inner,
		rdb:          rdb,
		ttl:          cfg.TTL,
		prefix:       cfg.Prefix + ":" + desc.Partition + ":",
		logger:       logger,
	}
}

func (s *CachedAccountStore) key(id string) string { return s.prefix + id }

func (s *CachedAccountStore) FindProfile(ctx context.Context, id string) (*model.Account, error) {
	bs, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	switch {
	case err == nil:
		var a model.Account
		if jerr := json.Unmarshal(bs, &a); jerr == nil {
			return &a, nil
		}
		s.logger.Warn().Str("key", s.key(id)).Msg("dropping undecodable cached profile")
		s.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn().Err(err).Msg("account cache read failed")
	}

	a, err := s.AccountStore.FindProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(a); jerr == nil {
		if serr := s.rdb.Set(ctx, s.key(id), payload, s.ttl).Err(); serr != nil {
			s.logger.Warn().Err(serr).Msg("account cache write failed")
		}
	}
	return a, nil
}

func (s *CachedAccountStore) UpdateProfile(ctx context.Context, a *model.Account) error {
	if err := s.AccountStore.UpdateProfile(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx, a.ID)
	return nil
}

func (s *CachedAccountStore) UpdatePassword(ctx context.Context, id, hash string) error {
	if err := s.AccountStore.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedAccountStore) invalidate(ctx context.Context, id string) {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("account_id", id).Msg("account cache invalidation failed")
	}
}
