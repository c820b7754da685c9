package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/CSYE6225NCLOUD/webapp/api/swagger"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/gin/handler"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/gin/middleware"
	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/health"
	"github.com/CSYE6225NCLOUD/webapp/pkg/ratelimit"
)

// OpenAPIPath serves the raw OpenAPI document used by the Swagger UI.
const OpenAPIPath = "/docs/openapi.json"

// HealthzPath answers health probes with an empty body.
const HealthzPath = "/healthz"

// Dependencies groups everything the route table needs.
type Dependencies struct {
	UserHandler   *handler.UserHandler
	HealthHandler *handler.HealthHandler
	Checker       health.Checker
	Authenticator middleware.Authenticator
	RateLimiter   *ratelimit.Limiter
	Logger        *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Global middleware. The DB gate also covers the 404/405 fallbacks.
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.Recovery(d.Logger))
	router.Use(middleware.RateLimiter(d.RateLimiter, d.Logger))
	router.Use(middleware.DBHealth(d.Checker, HealthzPath))

	router.NoRoute(func(c *gin.Context) { c.AbortWithStatus(http.StatusNotFound) })
	router.NoMethod(middleware.NoCache(), handler.MethodNotAllowed)

	// Health check endpoint
	healthz := router.Group(HealthzPath, middleware.NoCache())
	{
		healthz.GET("", d.HealthHandler.Healthz)
		for _, method := range []string{
			http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		} {
			healthz.Handle(method, "", handler.MethodNotAllowed)
		}
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.POST("/user", d.UserHandler.CreateUser)

		self := v1.Group("/user/self", middleware.NoCache())
		{
			auth := middleware.BasicAuth(d.Authenticator, d.Logger)
			self.GET("", auth, d.UserHandler.GetSelf)
			self.PUT("", auth, d.UserHandler.UpdateSelf)
			for _, method := range []string{
				http.MethodHead, http.MethodPatch, http.MethodDelete, http.MethodOptions,
			} {
				self.Handle(method, "", handler.MethodNotAllowed)
			}
		}
	}

	// API documentation
	router.GET(OpenAPIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", swagger.Spec)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(OpenAPIPath))))

	return router
}
