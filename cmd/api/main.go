package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"card-assistant-backend/config"
	_ "card-assistant-backend/docs" // Important for Swagger
	v1 "card-assistant-backend/internal/delivery/http/v1"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/navigation"
	"card-assistant-backend/internal/repository/personalization"
	"card-assistant-backend/internal/repository/postgres"
	staterepo "card-assistant-backend/internal/repository/redis"
	"card-assistant-backend/internal/repository/sqlite"
	"card-assistant-backend/internal/repository/sqlite/migrations"
	"card-assistant-backend/internal/repository/supabase"
	"card-assistant-backend/internal/usecase"
	"card-assistant-backend/pkg/auth"
	"card-assistant-backend/pkg/database"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/messaging"
	redispkg "card-assistant-backend/pkg/redis"
	"card-assistant-backend/pkg/security"
	"card-assistant-backend/pkg/telemetry"
	"card-assistant-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Card Assistant Companion API
// @version         1.0
// @description     Device-local session, onboarding and context service for the card assistant.
// @host            localhost:8787
// @BasePath        /v1
func main() {
	// Runs after every other deferred close.
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger, audit trail and tracing
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting card assistant backend", "port", cfg.Port, "env", cfg.AppEnv)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.New(rootCtx, telemetry.Config{
		Endpoint:    cfg.TelemetryEndpoint,
		Insecure:    cfg.TelemetryInsecure,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", "error", err)
		tp = telemetry.Noop()
	}

	audit := security.NewAuditLogger(cfg.ServiceName, cfg.AppEnv)
	defer func() { _ = audit.Sync() }()

	// 3. Setup Databases
	dbPool, err := database.NewPostgresConnection(rootCtx, cfg.DBUrl, cfg.DBMaxConns)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.LocalCachePath), 0o700); err != nil {
		logger.Log.Error("Failed to create local cache directory", "error", err)
		os.Exit(1)
	}
	localDB, err := database.NewSQLiteConnection(rootCtx, cfg.LocalCachePath, migrations.FS)
	if err != nil {
		logger.Log.Error("Failed to open local cache", "path", cfg.LocalCachePath, "error", err)
		os.Exit(1)
	}
	defer localDB.Close()

	// 4. Optional Redis (OAuth state, rate limiting) and NATS (change events)
	var (
		redisClient *goredis.Client
		states      domain.OAuthStateStore = staterepo.NewMemoryStateStore()
	)
	redisClient, err = redispkg.New(rootCtx, redispkg.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword})
	switch {
	case errors.Is(err, redispkg.ErrNotConfigured):
		redisClient = nil
	case err != nil:
		logger.Log.Warn("Redis unavailable, using in-memory fallback", "error", err)
		redisClient = nil
	default:
		states = staterepo.NewStateStore(redisClient)
		defer redisClient.Close()
	}

	var events domain.EventPublisher = domain.NoopPublisher{}
	if cfg.NatsURL != "" {
		publisher, err := messaging.Connect(cfg.NatsURL, cfg.ServiceName)
		if err != nil {
			logger.Log.Warn("NATS unavailable, change events disabled", "error", err)
		} else {
			events = publisher
			defer publisher.Close()
		}
	}

	// 5. Setup Identity Provider
	httpClient := &http.Client{Timeout: 15 * time.Second}
	jwksProvider := auth.NewProvider(cfg.SupabaseUrl+"/auth/v1/.well-known/jwks.json", httpClient)
	verifier := supabase.NewTokenVerifier(auth.NewVerifier(jwksProvider, cfg.SupabaseJWTSecret))
	identityProvider := supabase.NewGoTrueClient(cfg.SupabaseUrl, cfg.SupabaseKey, httpClient)

	// 6. Setup Repositories
	profileRepo := postgres.NewProfileRepository(dbPool)
	cardRepo := postgres.NewCardRepository(dbPool)
	conversationRepo := postgres.NewConversationRepository(dbPool)
	insightsRepo := postgres.NewInsightsRepository(dbPool)
	localStore := sqlite.NewLocalStore(localDB)

	// 7. Setup UseCases
	validate := validation.New()
	profileUC := usecase.NewProfileEngine(profileRepo, events, audit, validate)
	sessionUC := usecase.NewSessionStore(usecase.SessionStoreConfig{
		Provider:    identityProvider,
		Verifier:    verifier,
		Local:       localStore,
		States:      states,
		Profiles:    profileUC,
		Events:      events,
		Audit:       audit,
		RedirectURL: cfg.OAuthRedirectURL,
		StateTTL:    cfg.OAuthStateTTL,
	})
	defer sessionUC.Close()
	onboardingUC := usecase.NewOnboardingStore(rootCtx, usecase.OnboardingStoreConfig{
		Repo:     profileRepo,
		Profiles: profileUC,
		Local:    localStore,
		Validate: validate,
		Events:   events,
		Audit:    audit,
	})
	defer onboardingUC.Close()
	contextUC := usecase.NewContextAggregator(profileRepo, cardRepo, insightsRepo, usecase.ContextAggregatorConfig{
		Timeout:                cfg.AggregationTimeout,
		RecentTransactionLimit: cfg.RecentTransactionLimit,
		InsightsWindowDays:     cfg.InsightsWindowDays,
		TopCategoriesDays:      cfg.TopCategoriesDays,
	})
	cardUC := usecase.NewCardUsecase(cardRepo, profileUC, validate)
	assistant := personalization.NewClient(cfg.PersonalizationURL, cfg.PersonalizationAPIKey, httpClient)
	chatUC := usecase.NewChatUsecase(conversationRepo, profileUC, contextUC, assistant)

	healthChecks := map[string]usecase.HealthCheck{
		"postgres": func(ctx context.Context) error { return dbPool.Ping(ctx) },
		"local":    func(ctx context.Context) error { return localDB.PingContext(ctx) },
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redispkg.HealthCheck(ctx, redisClient) }
	}
	healthUC := usecase.NewHealthUsecase(healthChecks)

	// 8. Navigation runs for the life of the process, independent of any request
	navigator := navigation.NewMachine(sessionUC, onboardingUC)
	defer navigator.Close()
	go navigator.Run(rootCtx)

	// Resume the stored session without holding up the listener
	go func() {
		snapshot := sessionUC.Restore(rootCtx)
		logger.Log.Info("Startup session restored", "authenticated", snapshot.Authenticated())
	}()

	// 9. Setup Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		SessionUC:    sessionUC,
		OnboardingUC: onboardingUC,
		ProfileUC:    profileUC,
		CardUC:       cardUC,
		ChatUC:       chatUC,
		ContextUC:    contextUC,
		HealthUC:     healthUC,
		Navigator:    navigator,
		Redis:        redisClient,
		Audit:        audit,
		Config:       cfg,
	})

	// 10. Start Server (loopback only)
	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := serve(srv, quit); err != nil {
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	stop()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Log.Warn("Tracer shutdown failed", "error", err)
	}

	logger.Log.Info("Server exiting")
}
