package cached

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/cache"
	domain "github.com/CSYE6225NCLOUD/webapp/internal/domain/user"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
)

// DefaultLookupTimeout bounds a database lookup shared by concurrent misses.
const DefaultLookupTimeout = 5 * time.Second

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo        user.Repository
	cache         cache.UserCache
	log           *zap.Logger
	group         singleflight.Group
	lookupTimeout time.Duration
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo:        dbRepo,
		cache:         cache,
		log:           log,
		lookupTimeout: DefaultLookupTimeout,
	}
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.dbRepo.Create(ctx, u)
}

// FindByEmail retrieves a user by email using the cache-aside pattern.
// Misses are not cached.
func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if cachedUser, err := r.cache.Get(ctx, email); err != nil {
		r.log.Warn("cache get error, falling back to database", zap.Error(err))
	} else if cachedUser != nil {
		return cachedUser, nil
	}

	// Collapse concurrent misses for the same email into one query. The query
	// belongs to every waiter, so it must not die with the first caller.
	result, err, _ := r.group.Do(email, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()
		return r.load(lookupCtx, email)
	})
	if err != nil {
		return nil, err
	}

	u, _ := result.(*domain.User)
	if u == nil {
		return nil, nil
	}
	// singleflight shares the pointer between callers
	cp := *u
	return &cp, nil
}

// load reads the user and caches it. The row is read again after the cache
// version, so an update that lands during the first read is either seen by
// the second read or rejects the cache write.
func (r *CachedUserRepository) load(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.dbRepo.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return u, err
	}

	version, err := r.cache.Version(ctx, u.ID)
	if err != nil {
		r.log.Warn("failed to read cache version, not caching", zap.String("user_id", u.ID), zap.Error(err))
		return u, nil
	}

	fresh, err := r.dbRepo.FindByEmail(ctx, email)
	if err != nil || fresh == nil || fresh.ID != u.ID {
		return fresh, err
	}

	if _, err := r.cache.Set(ctx, fresh, version); err != nil {
		r.log.Warn("failed to cache user", zap.String("user_id", fresh.ID), zap.Error(err))
	}
	return fresh, nil
}

// UpdateFields updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) UpdateFields(ctx context.Context, id string, changes domain.Changes) error {
	if err := r.dbRepo.UpdateFields(ctx, id, changes); err != nil {
		return err
	}

	// Invalidate cache after successful update, even if the caller has gone away
	invalidateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
	defer cancel()
	if err := r.cache.Invalidate(invalidateCtx, id); err != nil {
		r.log.Warn("failed to invalidate cache after update", zap.String("user_id", id), zap.Error(err))
	}
	return nil
}
