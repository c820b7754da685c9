package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "github.com/CSYE6225NCLOUD/webapp/internal/domain/user"
)

// UserCache defines the interface for user caching operations.
//
// Every user has a version that Invalidate bumps. Callers read the version
// before loading a user from the database and pass it to Set, which refuses
// to write once the version has moved on.
type UserCache interface {
	// Get retrieves a user from cache by email.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, email string) (*domain.User, error)

	// Version returns the current version of the user with the given ID.
	Version(ctx context.Context, id string) (int64, error)

	// Set stores a user with the configured TTL if its version still equals
	// version. It reports whether the entry was written.
	Set(ctx context.Context, user *domain.User, version int64) (bool, error)

	// Invalidate bumps the user's version and removes its cached entry.
	Invalidate(ctx context.Context, id string) error
}

// cachedUser is the JSON form stored in Redis.
type cachedUser struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	AccountCreated time.Time `json:"account_created"`
	AccountUpdated time.Time `json:"account_updated"`
}

// setScript writes the entry and the email index only while the version key
// still holds the version read before the database lookup.
//
// KEYS[1] = version key, KEYS[2] = entry key, KEYS[3] = email index key
// ARGV[1] = expected version, ARGV[2] = entry, ARGV[3] = user id, ARGV[4] = ttl in ms
var setScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
return 1
`)

// invalidateScript bumps the version and drops the entry in one step.
//
// KEYS[1] = version key, KEYS[2] = entry key
var invalidateScript = redis.NewScript(`
redis.call('INCR', KEYS[1])
redis.call('DEL', KEYS[2])
return 1
`)

// RedisUserCache implements UserCache using Redis as the backing store.
// Entries live under the user ID; an email index points at the ID.
// A stale index only costs a miss.
type RedisUserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client redis.Cmdable, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func emailKey(email string) string {
	return "user:email:" + email
}

func entryKey(id string) string {
	return "user:id:" + id
}

func versionKey(id string) string {
	return "user:version:" + id
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, email string) (*domain.User, error) {
	id, err := c.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		// Cache miss - not an error
		c.log.Debug("cache miss", zap.String("email", email))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	data, err := c.client.Get(ctx, entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("user_id", id))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	if cu.Email != email {
		return nil, nil
	}

	c.log.Debug("cache hit", zap.String("user_id", cu.ID))
	return &domain.User{
		ID:             cu.ID,
		FirstName:      cu.FirstName,
		LastName:       cu.LastName,
		Email:          cu.Email,
		PasswordHash:   cu.PasswordHash,
		AccountCreated: cu.AccountCreated,
		AccountUpdated: cu.AccountUpdated,
	}, nil
}

// Version returns the user's version; a user never invalidated is at 0.
func (c *RedisUserCache) Version(ctx context.Context, id string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("user_id", id), zap.Error(err))
		return 0, err
	}
	return v, nil
}

// Set stores a user in Redis cache with TTL unless it was invalidated after
// version was read.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("cannot cache nil user")
	}

	data, err := json.Marshal(cachedUser{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		AccountCreated: user.AccountCreated,
		AccountUpdated: user.AccountUpdated,
	})
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}

	written, err := setScript.Run(ctx, c.client,
		[]string{versionKey(user.ID), entryKey(user.ID), emailKey(user.Email)},
		strconv.FormatInt(version, 10), data, user.ID, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}

	if written == 0 {
		c.log.Debug("skipped caching outdated user", zap.String("user_id", user.ID), zap.Int64("version", version))
		return false, nil
	}
	c.log.Debug("cached user", zap.String("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Invalidate removes a user from Redis cache and makes pending Sets for it fail.
func (c *RedisUserCache) Invalidate(ctx context.Context, id string) error {
	if err := invalidateScript.Run(ctx, c.client, []string{versionKey(id), entryKey(id)}).Err(); err != nil {
		c.log.Error("failed to invalidate cache", zap.String("user_id", id), zap.Error(err))
		return err
	}

	c.log.Debug("invalidated cache", zap.String("user_id", id))
	return nil
}
