package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// DefaultTimeout bounds a single connectivity check.
const DefaultTimeout = 2 * time.Second

// Pinger checks connectivity to a backing store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports whether the store is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Service implements Checker on top of a Pinger.
type Service struct {
	db      Pinger
	timeout time.Duration
	log     *zap.Logger
}

// New creates a health Service. A non-positive timeout falls back to DefaultTimeout.
func New(db Pinger, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{db: db, timeout: timeout, log: log}
}

// Check pings the store once. Failures are returned as *errors.UnavailableError.
func (s *Service) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("database ping failed", zap.Error(err))
		return pkgerrors.NewUnavailableError("database", err)
	}
	return nil
}
