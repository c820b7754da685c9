package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/gin/middleware"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
	pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user.
// The account_* keys are captured only to reject them.
type CreateUserRequest struct {
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	AccountCreated json.RawMessage `json:"account_created,omitempty"`
	AccountUpdated json.RawMessage `json:"account_updated,omitempty"`
}

// UpdateUserRequest represents the HTTP request body for a self-update
type UpdateUserRequest struct {
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Password       string          `json:"password"`
	Email          *string         `json:"email,omitempty"`
	AccountCreated json.RawMessage `json:"account_created,omitempty"`
	AccountUpdated json.RawMessage `json:"account_updated,omitempty"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	AccountCreated time.Time `json:"account_created"`
	AccountUpdated time.Time `json:"account_updated"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		AccountCreated: u.AccountCreated,
		AccountUpdated: u.AccountUpdated,
	}
}

// CreateUser handles POST /v1/user
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid create user request", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if req.AccountCreated != nil || req.AccountUpdated != nil {
		log.Warn("create user request sets system fields")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(resp))
}

// GetSelf handles GET /v1/user/self
func (h *UserHandler) GetSelf(c *gin.Context) {
	if hasArguments(c.Request) {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.handleError(c, pkgerrors.NewInternalError("no authenticated user in context", nil))
		return
	}

	c.JSON(http.StatusOK, toUserResponse(u))
}

// UpdateSelf handles PUT /v1/user/self
func (h *UserHandler) UpdateSelf(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	u, ok := middleware.CurrentUser(c)
	if !ok {
		h.handleError(c, pkgerrors.NewInternalError("no authenticated user in context", nil))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid update user request", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if req.AccountCreated != nil || req.AccountUpdated != nil {
		log.Warn("update user request sets system fields")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	err := h.uc.UpdateSelf(c.Request.Context(), user.UpdateSelfRequest{
		Current:   *u,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MethodNotAllowed answers 405 with no body.
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatus(http.StatusMethodNotAllowed)
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	status := pkgerrors.StatusOf(err)
	log := logger.WithContext(c.Request.Context(), h.log)

	var validationErr *pkgerrors.ValidationError
	switch {
	case status == http.StatusBadRequest && errors.As(err, &validationErr):
		log.Warn("request rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
	case status == http.StatusBadRequest:
		log.Warn("request rejected", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case status == http.StatusNotFound:
		c.AbortWithStatus(http.StatusNotFound)
	case status == http.StatusServiceUnavailable:
		log.Error("dependency unavailable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Connection Failed"})
	default:
		log.Error("request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}
}
