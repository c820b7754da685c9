package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CSYE6225NCLOUD/webapp/cmd/api/infrastructure"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/cache"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/db/postgres"
	ginhandler "github.com/CSYE6225NCLOUD/webapp/internal/adapter/gin/handler"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/repository/cached"
	"github.com/CSYE6225NCLOUD/webapp/internal/config"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/health"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
	"github.com/CSYE6225NCLOUD/webapp/pkg/ratelimit"
	redisclient "github.com/CSYE6225NCLOUD/webapp/pkg/redis"
	"github.com/CSYE6225NCLOUD/webapp/pkg/security"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *gorm.DB
	RedisClient   *redisclient.Client // nil when Redis is disabled
	UserUC        *user.Service
	Health        *health.Service
	RateLimiter   *ratelimit.Limiter
	UserHandler   *ginhandler.UserHandler
	HealthHandler *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Initialize database
	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err := infrastructure.Migrate(db, l); err != nil {
			_ = infrastructure.CloseDatabase(db)
			return nil, err
		}
	}

	// Initialize Redis client
	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize rate limiter; a nil Scripter disables it
	var scripter goredis.Scripter
	if rdb != nil {
		scripter = rdb.Client
	}
	rateLimiter := ratelimit.New(scripter, ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstCapacity:     cfg.RateLimit.BurstCapacity,
		Enabled:           cfg.RateLimit.Enabled,
	}, l)

	// Initialize repository and use cases
	var repo user.Repository = postgres.NewUserRepoPG(db, l)
	if cfg.Cache.Enabled && rdb != nil {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		repo = cached.NewCachedUserRepository(repo, cache.NewRedisUserCache(rdb.Client, ttl, l), l)
		l.Info("user cache enabled", zap.Duration("ttl", ttl))
	}
	userUC := user.New(repo, security.NewBcryptHasher(cfg.App.BcryptCost), l)
	healthSvc := health.New(postgres.NewPinger(db), time.Duration(cfg.DB.PingTimeoutSeconds)*time.Second, l)

	return &Container{
		Config:        cfg,
		Logger:        l,
		DB:            db,
		RedisClient:   rdb,
		UserUC:        userUC,
		Health:        healthSvc,
		RateLimiter:   rateLimiter,
		UserHandler:   ginhandler.NewUserHandler(userUC, l),
		HealthHandler: ginhandler.NewHealthHandler(healthSvc, l),
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
