package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CSYE6225NCLOUD/webapp/internal/domain/user"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UserRepoPG implements the user Repository using GORM. It runs against
// postgres in production and sqlite locally.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
	now func() time.Time
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log, now: time.Now}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID             string    `gorm:"primaryKey;size:36"`
	FirstName      string    `gorm:"not null"`
	LastName       string    `gorm:"not null"`
	Email          string    `gorm:"not null;uniqueIndex"`
	Password       string    `gorm:"not null"` // bcrypt hash
	AccountCreated time.Time `gorm:"not null"`
	AccountUpdated time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// BeforeCreate assigns a random UUID when the row has no ID yet.
func (s *UserSchema) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Models returns every model managed by this package, for migrations.
func Models() []any {
	return []any{&UserSchema{}}
}

// Create inserts a new user. ID and both timestamps are written back to u.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	now := r.now().UTC()
	model := UserSchema{
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Password:       u.PasswordHash,
		AccountCreated: now,
		AccountUpdated: now,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return user.ErrEmailAlreadyExists
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = model.ID
	u.AccountCreated = model.AccountCreated
	u.AccountUpdated = model.AccountUpdated

	r.log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// FindByEmail retrieves a user by email. It returns nil, nil when there is no match.
func (r *UserRepoPG) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return toDomain(&model), nil
}

// UpdateFields writes the non-nil fields of changes and always refreshes account_updated.
func (r *UserRepoPG) UpdateFields(ctx context.Context, id string, changes user.Changes) error {
	updates := map[string]any{
		"account_updated": r.now().UTC(),
	}
	if changes.FirstName != nil {
		updates["first_name"] = *changes.FirstName
	}
	if changes.LastName != nil {
		updates["last_name"] = *changes.LastName
	}
	if changes.PasswordHash != nil {
		updates["password"] = *changes.PasswordHash
	}

	res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		r.log.Error("failed to update user in db", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.log.Warn("update matched no user", zap.String("id", id))
		return user.ErrNotFound
	}

	r.log.Info("user updated in db", zap.String("id", id), zap.Int("fields", len(updates)))
	return nil
}

func toDomain(m *UserSchema) *user.User {
	return &user.User{
		ID:             m.ID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Email:          m.Email,
		PasswordHash:   m.Password,
		AccountCreated: m.AccountCreated,
		AccountUpdated: m.AccountUpdated,
	}
}

// isUniqueViolation recognises duplicate-key errors from both drivers, with or
// without gorm's TranslateError.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
