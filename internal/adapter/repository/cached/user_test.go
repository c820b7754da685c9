package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/cache"
	domain "github.com/CSYE6225NCLOUD/webapp/internal/domain/user"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
)

// MockRepository is a mock implementation of user.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) UpdateFields(ctx context.Context, id string, changes domain.Changes) error {
	args := m.Called(ctx, id, changes)
	return args.Error(0)
}

// memRepository holds a single user in memory. afterRead, when set, runs
// after the nth FindByEmail has taken its snapshot and before it returns.
type memRepository struct {
	mu        sync.Mutex
	user      domain.User
	reads     int
	afterRead func(n int)
}

func (m *memRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.reads++
	n := m.reads
	snapshot := m.user
	hook := m.afterRead
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if snapshot.Email != email {
		return nil, nil
	}
	return &snapshot, nil
}

func (m *memRepository) Create(context.Context, *domain.User) error {
	return errors.New("not supported")
}

func (m *memRepository) UpdateFields(ctx context.Context, id string, changes domain.Changes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user.ID != id {
		return domain.ErrNotFound
	}
	if changes.PasswordHash != nil {
		m.user.PasswordHash = *changes.PasswordHash
	}
	return nil
}

func newRedisCache(t *testing.T) (*cache.RedisUserCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisUserCache(client, time.Minute, zaptest.NewLogger(t)), mr
}

func setup(t *testing.T) (*CachedUserRepository, *MockRepository, *miniredis.Miniredis) {
	c, mr := newRedisCache(t)
	db := new(MockRepository)
	return NewCachedUserRepository(db, c, zaptest.NewLogger(t)), db, mr
}

func jane() *domain.User {
	return &domain.User{ID: "u-1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", PasswordHash: "hash"}
}

func TestFindByEmail_MissThenHit(t *testing.T) {
	repo, db, _ := setup(t)
	ctx := context.Background()

	// a miss reads the row, then re-reads it after taking the cache version
	db.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane(), nil).Twice()

	first, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", first.ID)

	second, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", second.PasswordHash)

	db.AssertNumberOfCalls(t, "FindByEmail", 2)
}

func TestFindByEmail_UnknownIsNotCached(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, nil).Twice()

	for i := 0; i < 2; i++ {
		u, err := repo.FindByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, u)
	}
	assert.Empty(t, mr.Keys())
	db.AssertExpectations(t)
}

func TestFindByEmail_DBError(t *testing.T) {
	repo, db, _ := setup(t)
	dbErr := errors.New("connection refused")

	db.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, dbErr)

	_, err := repo.FindByEmail(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, dbErr)
}

func TestFindByEmail_CacheDownFallsBack(t *testing.T) {
	repo, db, mr := setup(t)
	mr.Close()

	// without a version the user is served but not cached, so no second read
	db.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane(), nil).Twice()

	for i := 0; i < 2; i++ {
		u, err := repo.FindByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-1", u.ID)
	}
	db.AssertExpectations(t)
}

func TestFindByEmail_UpdateDuringMissIsNotCachedStale(t *testing.T) {
	// read 1 is the first read of the miss, read 2 the re-read after the version
	for _, updateAfterRead := range []int{1, 2} {
		t.Run(map[int]string{1: "during first read", 2: "during re-read"}[updateAfterRead], func(t *testing.T) {
			c, _ := newRedisCache(t)
			db := &memRepository{user: domain.User{ID: "u-1", Email: "jane@example.com", PasswordHash: "old"}}
			repo := NewCachedUserRepository(db, c, zaptest.NewLogger(t))
			ctx := context.Background()

			newHash := "new"
			db.afterRead = func(n int) {
				if n == updateAfterRead {
					require.NoError(t, repo.UpdateFields(ctx, "u-1", domain.Changes{PasswordHash: &newHash}))
				}
			}

			_, err := repo.FindByEmail(ctx, "jane@example.com")
			require.NoError(t, err)

			db.mu.Lock()
			db.afterRead = nil
			db.mu.Unlock()

			for i := 0; i < 2; i++ {
				u, err := repo.FindByEmail(ctx, "jane@example.com")
				require.NoError(t, err)
				require.NotNil(t, u)
				assert.Equal(t, "new", u.PasswordHash)
			}
		})
	}
}

func TestFindByEmail_SurvivesCallerCancellation(t *testing.T) {
	c, _ := newRedisCache(t)
	db := &memRepository{user: *jane()}
	repo := NewCachedUserRepository(db, c, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestUpdateFields_Invalidates(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()
	name := "Janet"
	changes := domain.Changes{FirstName: &name}

	db.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane(), nil).Twice()
	db.On("UpdateFields", mock.Anything, "u-1", changes).Return(nil).Once()

	_, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.True(t, mr.Exists("user:id:u-1"))

	require.NoError(t, repo.UpdateFields(ctx, "u-1", changes))
	assert.False(t, mr.Exists("user:id:u-1"))
	db.AssertExpectations(t)
}

func TestUpdateFields_ErrorKeepsCache(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()
	dbErr := errors.New("write failed")

	db.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane(), nil).Twice()
	db.On("UpdateFields", mock.Anything, "u-1", mock.Anything).Return(dbErr).Once()

	_, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	err = repo.UpdateFields(ctx, "u-1", domain.Changes{})
	assert.ErrorIs(t, err, dbErr)
	assert.True(t, mr.Exists("user:id:u-1"))
}

func TestCreate_Delegates(t *testing.T) {
	repo, db, mr := setup(t)
	u := jane()

	db.On("Create", mock.Anything, u).Return(nil).Once()

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Empty(t, mr.Keys())
	db.AssertExpectations(t)
}

var _ user.Repository = (*memRepository)(nil)
