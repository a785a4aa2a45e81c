// Package api exposes the HTTP JSON surface on a gin engine wrapped with
// CORS and per-IP rate limiting.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/auth"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/googleanalytics"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/metaads"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/service"
)

// GoogleConnector is the Google Analytics connector used by the handlers
type GoogleConnector interface {
	AuthURL(userID string) (string, error)
	HandleCallback(ctx context.Context, userID, code, state string) (string, error)
	FetchData(ctx context.Context, userID string, q googleanalytics.ReportQuery) (*models.AnalyticsReport, error)
	ListProperties(ctx context.Context, userID string) ([]models.AnalyticsProperty, error)
	Disconnect(userID string) error
}

// MetaConnector is the Meta Ads connector used by the handlers
type MetaConnector interface {
	AuthURL(userID string) (string, error)
	HandleCallback(ctx context.Context, userID, code, state string) (string, error)
	FetchData(ctx context.Context, userID string, q metaads.InsightsQuery) ([]map[string]any, error)
	ListAdAccounts(ctx context.Context, userID string) ([]models.AdAccount, error)
	Disconnect(userID string) error
}

// StatusReporter derives per-service integration status
type StatusReporter interface {
	Status(userID string) map[string]models.IntegrationStatus
}

// TokenValidator checks bearer tokens and returns their subject
type TokenValidator interface {
	Validate(token string, kind auth.TokenType) (string, error)
}

type Options struct {
	FrontendURL        string
	RateLimitPerMinute int
}

type Server struct {
	users  *service.UserService
	tokens TokenValidator
	status StatusReporter
	google GoogleConnector
	meta   MetaConnector
}

func NewServer(users *service.UserService, tokens TokenValidator, status StatusReporter, google GoogleConnector, meta MetaConnector) *Server {
	return &Server{
		users:  users,
		tokens: tokens,
		status: status,
		google: google,
		meta:   meta,
	}
}

// Handler builds the gin engine and wraps it with CORS and rate limiting
func (s *Server) Handler(opts Options) http.Handler {
	engine := gin.New()
	engine.MaxMultipartMemory = service.MaxUploadSize
	engine.Use(recovery(), requestLogger())
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	s.routes(engine)

	var h http.Handler = engine
	if opts.RateLimitPerMinute > 0 {
		h = httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute)(h)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working!"})
	})

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.requireToken(auth.RefreshToken), s.refresh)

	api.POST("/upload", s.upload)

	user := api.Group("/user", s.requireToken(auth.AccessToken))
	user.GET("/profile", s.getProfile)
	user.PUT("/profile", s.updateProfile)

	integrations := api.Group("/integrations", s.requireToken(auth.AccessToken))
	integrations.GET("/status", s.integrationStatus)
	integrations.GET("/settings", s.getSettings)
	integrations.POST("/settings", s.saveSettings)

	integrations.POST("/google/test", s.testGoogle)
	integrations.GET("/google/auth", s.googleAuth)
	integrations.POST("/google/callback", s.googleCallback)
	integrations.GET("/google/properties", s.googleProperties)
	integrations.GET("/google/data", s.googleData)
	integrations.DELETE("/google", s.googleDisconnect)

	integrations.POST("/meta/test", s.testMeta)
	integrations.GET("/meta/auth", s.metaAuth)
	integrations.POST("/meta/callback", s.metaCallback)
	integrations.GET("/meta/accounts", s.metaAccounts)
	integrations.GET("/meta/insights", s.metaInsights)
	integrations.DELETE("/meta", s.metaDisconnect)
}
