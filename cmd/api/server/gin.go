package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CSYE6225NCLOUD/webapp/cmd/api/di"
	ginrouter "github.com/CSYE6225NCLOUD/webapp/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(c *di.Container, ginAddr string, l *zap.Logger) *http.Server {
	if c.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := ginrouter.SetupRouter(ginrouter.Dependencies{
		UserHandler:   c.UserHandler,
		HealthHandler: c.HealthHandler,
		Checker:       c.Health,
		Authenticator: c.UserUC,
		RateLimiter:   c.RateLimiter,
		Logger:        l,
	})

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.String("swagger", "/swagger/index.html"),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
