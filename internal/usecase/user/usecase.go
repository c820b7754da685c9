package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	domain "github.com/CSYE6225NCLOUD/webapp/internal/domain/user"
	pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
	"github.com/CSYE6225NCLOUD/webapp/pkg/security"

	"github.com/go-playground/validator/v10"
)

// Repository defines the interface for user data access operations.
// Implementations own id generation, both timestamps and email uniqueness.
type Repository interface {
	// FindByEmail returns nil, nil when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns ID, AccountCreated and AccountUpdated on u.
	// A taken email yields domain.ErrEmailAlreadyExists.
	Create(ctx context.Context, u *domain.User) error
	// UpdateFields applies changes and refreshes AccountUpdated.
	UpdateFields(ctx context.Context, id string, changes domain.Changes) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns security.ErrPasswordMismatch on a wrong password.
	Compare(hash, password string) error
}

// Service implements Usecase.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new user Service.
func New(r Repository, h PasswordHasher, log *zap.Logger) *Service {
	return &Service{repo: r, hasher: h, log: log, validate: newValidator()}
}

// newValidator adds maxbytes, a length limit in bytes rather than runes.
// Passwords use it so that nothing the hasher would reject passes validation.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		case "maxbytes":
			messages = append(messages, fmt.Sprintf("%s must be at most %s bytes", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError(validationErrors[0].Field(), strings.Join(messages, ", "))
}

// CreateUser validates the request, hashes the password and stores the user.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("creating user", zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email))
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to hash password", err)
	}

	u := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			log.Warn("email taken concurrently", zap.String("email", in.Email))
			return nil, domain.ErrEmailAlreadyExists
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	log.Info("user created", zap.String("id", u.ID))
	return toDTO(u), nil
}

// Authenticate returns the user owning email when password matches its hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	log := logger.WithContext(ctx, s.log)

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		log.Debug("unknown email", zap.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			log.Debug("password mismatch", zap.String("id", u.ID))
			return nil, domain.ErrInvalidCredentials
		}
		log.Error("failed to verify password", zap.String("id", u.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to verify password", err)
	}

	return toDTO(u), nil
}

// UpdateSelf applies a self-update for in.Current.
func (s *Service) UpdateSelf(ctx context.Context, in UpdateSelfRequest) error {
	log := logger.WithContext(ctx, s.log)

	if in.Email != nil && *in.Email != "" && *in.Email != in.Current.Email {
		log.Warn("attempt to change email", zap.String("id", in.Current.ID))
		return domain.ErrEmailImmutable
	}

	if in.FirstName == "" && in.LastName == "" && in.Password == "" {
		return domain.ErrNoChanges
	}

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return formatValidationError(err)
	}

	var changes domain.Changes
	if in.FirstName != "" {
		changes.FirstName = &in.FirstName
	}
	if in.LastName != "" {
		changes.LastName = &in.LastName
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			log.Error("failed to hash password", zap.Error(err))
			return pkgerrors.NewInternalError("failed to hash password", err)
		}
		changes.PasswordHash = &hash
	}

	if err := s.repo.UpdateFields(ctx, in.Current.ID, changes); err != nil {
		log.Error("failed to update user", zap.String("id", in.Current.ID), zap.Error(err))
		return pkgerrors.NewInternalError("failed to update user", err)
	}

	log.Info("user updated",
		zap.String("id", in.Current.ID),
		zap.Bool("first_name", changes.FirstName != nil),
		zap.Bool("last_name", changes.LastName != nil),
		zap.Bool("password", changes.PasswordHash != nil),
	)
	return nil
}

func toDTO(u *domain.User) *User {
	return &User{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		AccountCreated: u.AccountCreated,
		AccountUpdated: u.AccountUpdated,
	}
}
