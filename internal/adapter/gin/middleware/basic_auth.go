package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/user"
	pkgerrors "github.com/CSYE6225NCLOUD/webapp/pkg/errors"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// Realm is advertised in the WWW-Authenticate challenge.
const Realm = "webapp"

const currentUserKey = "current_user"

// Authenticator verifies Basic credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}

// BasicAuth requires HTTP Basic credentials with the email as username.
// Missing credentials get 401, credentials that match no user get 400.
func BasicAuth(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok || email == "" || password == "" {
			c.Header("WWW-Authenticate", `Basic realm="`+Realm+`"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		u, err := auth.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			var ce *pkgerrors.CredentialsError
			if errors.As(err, &ce) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ce.Message})
				return
			}
			logger.WithContext(c.Request.Context(), log).Error("authentication failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}

		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), u.ID))
		c.Set(currentUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user authenticated by BasicAuth.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

