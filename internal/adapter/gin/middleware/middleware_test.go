package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
	pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
	"github.com/CSYE6225NCLOUD/webapp/pkg/ratelimit"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Check(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== BASIC AUTH ====================

func TestBasicAuth(t *testing.T) {
	jane := &user.User{ID: "u-1", Email: "jane@example.com"}

	newRouter := func(t *testing.T, auth *MockAuthenticator) *gin.Engine {
		r := gin.New()
		r.GET("/self", BasicAuth(auth, zaptest.NewLogger(t)), func(c *gin.Context) {
			u, ok := CurrentUser(c)
			require.True(t, ok)
			assert.Equal(t, u.ID, logger.GetUserID(c.Request.Context()))
			c.String(http.StatusOK, u.ID)
		})
		return r
	}

	t.Run("missing credentials", func(t *testing.T) {
		auth := new(MockAuthenticator)
		w := serve(newRouter(t, auth), httptest.NewRequest(http.MethodGet, "/self", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Basic realm="webapp"`, w.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"error":"Authentication required"}`, w.Body.String())
		auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed header", func(t *testing.T) {
		auth := new(MockAuthenticator)
		req := httptest.NewRequest(http.MethodGet, "/self", nil)
		req.Header.Set("Authorization", "Basic !!!not-base64")

		w := serve(newRouter(t, auth), req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty password", func(t *testing.T) {
		auth := new(MockAuthenticator)
		req := httptest.NewRequest(http.MethodGet, "/self", nil)
		req.SetBasicAuth("jane@example.com", "")

		w := serve(newRouter(t, auth), req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Authenticate", mock.Anything, "jane@example.com", "wrong").
			Return(nil, pkgerrors.ErrBadCredentials)
		req := httptest.NewRequest(http.MethodGet, "/self", nil)
		req.SetBasicAuth("jane@example.com", "wrong")

		w := serve(newRouter(t, auth), req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	})

	t.Run("lookup failure", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Authenticate", mock.Anything, "jane@example.com", "pw").
			Return(nil, pkgerrors.NewInternalError("failed to look up user", errors.New("timeout")))
		req := httptest.NewRequest(http.MethodGet, "/self", nil)
		req.SetBasicAuth("jane@example.com", "pw")

		w := serve(newRouter(t, auth), req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
	})

	t.Run("success", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Authenticate", mock.Anything, "jane@example.com", "pw").Return(jane, nil)
		req := httptest.NewRequest(http.MethodGet, "/self", nil)
		req.SetBasicAuth("jane@example.com", "pw")

		w := serve(newRouter(t, auth), req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u-1", w.Body.String())
		auth.AssertExpectations(t)
	})
}

func TestCurrentUser_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	u, ok := CurrentUser(c)
	assert.False(t, ok)
	assert.Nil(t, u)
}

// ==================== DB HEALTH ====================

func TestDBHealth(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		checker := new(MockChecker)
		checker.On("Check", mock.Anything).Return(nil)
		r := gin.New()
		r.Use(DBHealth(checker))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("store down", func(t *testing.T) {
		checker := new(MockChecker)
		checker.On("Check", mock.Anything).Return(pkgerrors.NewUnavailableError("database", errors.New("refused")))
		reached := false
		r := gin.New()
		r.Use(DBHealth(checker))
		r.GET("/x", func(c *gin.Context) { reached = true })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"message":"Connection Failed"}`, w.Body.String())
		assert.False(t, reached)
	})

	t.Run("skipped path", func(t *testing.T) {
		checker := new(MockChecker)
		r := gin.New()
		r.Use(DBHealth(checker, "/healthz"))
		r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		checker.AssertNotCalled(t, "Check", mock.Anything)
	})
}

// ==================== NO CACHE / REQUEST ID / RECOVERY ====================

func TestNoCache(t *testing.T) {
	r := gin.New()
	r.Use(NoCache())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, NoCacheValue, w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := serve(r, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zaptest.NewLogger(t)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/bad", nil))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusBadRequest), entries[1].ContextMap()["status"])
	assert.NotEmpty(t, entries[1].ContextMap()["request_id"])
}

// ==================== RATE LIMITER ====================

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	newRouter := func(l *ratelimit.Limiter) *gin.Engine {
		r := gin.New()
		r.Use(RateLimiter(l, zaptest.NewLogger(t)))
		r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("limits after burst", func(t *testing.T) {
		l := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))
		r := newRouter(l)

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
		w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	})

	t.Run("disabled", func(t *testing.T) {
		l := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: false}, zaptest.NewLogger(t))
		r := newRouter(l)

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
		}
	})

	t.Run("nil limiter", func(t *testing.T) {
		r := newRouter(nil)
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	})

	t.Run("fails open when redis is down", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		t.Cleanup(func() { _ = down.Close() })
		l := ratelimit.New(down, ratelimit.Config{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))
		r := newRouter(l)

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	})
}
