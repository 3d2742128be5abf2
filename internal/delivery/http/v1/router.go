package v1

import (
	"net/http"
	"time"

	"card-assistant-backend/config"
	"card-assistant-backend/internal/delivery/http/middleware"
	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/usecase"
	"card-assistant-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	SessionUC    domain.SessionUsecase
	OnboardingUC domain.OnboardingUsecase
	ProfileUC    domain.ProfileUsecase
	CardUC       domain.CardUsecase
	ChatUC       domain.ChatUsecase
	ContextUC    domain.ContextUsecase
	HealthUC     usecase.HealthUsecase
	Navigator    Navigator
	Redis        *goredis.Client // nil selects the in-memory rate limiter
	Audit        *security.AuditLogger
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.AllowedOrigins, deps.Config.IsProduction())) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.Config.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())

	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second
	limiter := middleware.NewRateLimiter(deps.Redis, deps.Audit)

	v1 := r.Group("/v1")
	v1.Use(limiter.Middleware(middleware.DefaultRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		report, healthy := deps.HealthUC.Check(c.Request.Context())
		if !healthy {
			response.Success(c, http.StatusOK, "System degraded", report)
			return
		}
		response.Success(c, http.StatusOK, "System operational", report)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	NewAuthHandler(v1, limiter.Middleware(middleware.AuthRateLimitConfig(deps.Config.RateLimitAuthThreshold, window)), deps.SessionUC, deps.OnboardingUC)
	NewSessionHandler(v1, deps.SessionUC, deps.OnboardingUC, deps.Navigator)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.RequireSession(deps.SessionUC))
	{
		NewOnboardingHandler(v1, protected, deps.OnboardingUC)
		NewProfileHandler(protected, deps.ProfileUC)
		NewCardHandler(protected, deps.CardUC)
		NewChatHandler(protected, deps.ChatUC, deps.ContextUC)
	}

	return r
}
