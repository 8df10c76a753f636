package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wondertwin-ai/app-otp/internal/config"
	"github.com/wondertwin-ai/app-otp/internal/handlers"
	"github.com/wondertwin-ai/app-otp/internal/logging"
	"github.com/wondertwin-ai/app-otp/internal/middleware"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/services"
	"github.com/wondertwin-ai/app-otp/internal/sms"
	"go.uber.org/zap"
)

// @title           OTP API
// @version         1.0
// @description     Phone verification service. Issues one-time codes over SMS, verifies them, and exchanges a successful verification for a signed credential bound to a phone-keyed identity.

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name otp
// @tag.description Phone verification operations

// @tag.name identity
// @tag.description Operations on the authenticated identity

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	// SMS backend fails fast on bad credentials
	dispatcher, err := sms.New(config.AppConfig)
	if err != nil {
		logging.Logger.Fatal("failed to configure sms dispatcher", zap.Error(err))
	}
	logging.Logger.Info("sms dispatcher configured", zap.String("provider", dispatcher.Provider()))

	// Wire services
	challengeStore := services.NewMongoChallengeStore(config.MongoDB.Collection(config.AppConfig.ChallengeCollection))
	identityStore := services.NewMongoIdentityStore(config.MongoDB.Collection(config.AppConfig.IdentityCollection))

	otpService := services.NewOTPService(services.OTPServiceParams{
		Store:       challengeStore,
		Dispatcher:  dispatcher,
		Limiter:     services.NewSMSRateLimiter(config.AppConfig.SMSSendsPerMinute, logging.Logger),
		Quota:       services.NewRedisSendQuota(config.Redis, config.AppConfig.SMSDailyLimit, logging.Logger),
		CodeTTL:     config.AppConfig.OTPCodeTTL,
		CodeLength:  config.AppConfig.OTPCodeLength,
		MaxAttempts: config.AppConfig.OTPMaxAttempts,
		Pepper:      config.AppConfig.OTPCodePepper,
		Logger:      logging.Logger,
	})
	identityService := services.NewIdentityService(identityStore, config.Redis, time.Hour, logging.Logger)
	credentialService := services.NewCredentialService(config.AppConfig.JWTSecret, config.AppConfig.JWTTTL)

	otpHandlers := handlers.NewOTPHandlers(otpService, identityService, credentialService)
	healthHandlers := handlers.NewHealthHandlers(config.MongoDB.Client(), config.Redis)

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/health", healthHandlers.HealthCheck)

		v1.POST("/otp/start", otpHandlers.StartVerification)
		v1.POST("/otp/verify", otpHandlers.VerifyCode)

		v1.GET("/me", middleware.AuthMiddleware(credentialService), otpHandlers.Me)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}
