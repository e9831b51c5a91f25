package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/logger"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/middleware"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/controllers"
	aws_pkg "github.com/DIKSHA-NCTE/sl-sunbird-service/pkg/aws"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/providers"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/routes"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "sunbird-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	ctx := context.Background()

	// --- 1. Initialization ---
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwWriter io.Writer
	if awsErr == nil {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName)
		if err != nil {
			zap.L().Warn("CloudWatch logs disabled", zap.Error(err))
		} else if cw != nil {
			cwWriter = cw
		}
	}
	logger.InitializeWithWriter(getEnv("ENV", "development"), cwWriter)
	defer logger.Sync()

	if awsErr != nil {
		zap.L().Fatal("Failed to load AWS config", zap.Error(awsErr))
	}

	cfg, err := LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	// Blob storage
	store := aws_pkg.NewBlobStore(awsCfg, aws_pkg.BlobStoreOptions{
		Bucket:     cfg.S3Bucket,
		Endpoint:   cfg.S3Endpoint,
		LinkExpiry: cfg.LinkExpiry,
		SignExpiry: cfg.SignedURLExpiry,
	})
	if err := store.EnsureBucket(ctx, cfg.S3Bucket); err != nil {
		zap.L().Warn("Failed to ensure bucket", zap.String("bucket", cfg.S3Bucket), zap.Error(err))
	}

	metrics := aws_pkg.NewMetricsClient(awsCfg)

	// Dictionary backend
	var (
		dictionary  providers.DictionaryBackend
		redisClient *redis.Client
	)
	switch cfg.DictionaryBackend {
	case DictionarySearch:
		dictionary = providers.NewSearchDictionary(cfg.DictionarySearchURL, cfg.DictionaryIndex, zap.L())
	default:
		redisClient, err = providers.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		redisDictionary := providers.NewRedisDictionary(redisClient, cfg.DictionaryIndex, zap.L())
		if err := redisDictionary.EnsureMapping(ctx); err != nil {
			zap.L().Warn("Failed to ensure dictionary mapping", zap.Error(err))
		}
		dictionary = redisDictionary
	}

	// Sunbird platform
	publisher := providers.NewPublisherToken(providers.KeycloakOptions{
		URL:          cfg.KeycloakURL,
		Realm:        cfg.KeycloakRealm,
		ClientID:     cfg.KeycloakClientID,
		ClientSecret: cfg.KeycloakClientSecret,
		Username:     cfg.PublisherUsername,
		Password:     cfg.PublisherPassword,
	}, zap.L())
	sunbird := providers.NewSunbirdClient(providers.SunbirdOptions{
		BaseURL:       cfg.SunbirdURL,
		Authorization: cfg.Authorization,
		ChannelID:     cfg.ChannelID,
	}, publisher, zap.L())

	// --- 2. Dependency Injection ---
	keywordOpts := services.KeywordServiceOptions{Metrics: metrics}
	if cfg.ArchiveKeywordReports {
		keywordOpts.Archiver = store
		keywordOpts.ReportsPrefix = cfg.KeywordReportsPrefix
	}
	if cfg.KeywordsSNSTopicARN != "" {
		keywordOpts.Events = aws_pkg.NewSNSClient(awsCfg)
		keywordOpts.EventsTopicArn = cfg.KeywordsSNSTopicARN
	}
	keywordService := services.NewKeywordService(dictionary, keywordOpts, zap.L())
	platformService := services.NewPlatformService(sunbird, cfg.OrganisationID, zap.L())

	validator := controllers.NewRequestValidator(cfg.MaxUploadSize)
	handlers := routes.Controllers{
		Keywords: controllers.NewKeywordsController(keywordService, validator),
		Platform: controllers.NewPlatformController(platformService, validator),
		Files:    controllers.NewFilesController(store, validator),
	}

	// --- 3. HTTP Server & Middleware ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zap.L()))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.UserTokenHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Upload-Session", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(middleware.RequestTimeout(30*time.Second, func(c *gin.Context) bool {
		return c.FullPath() == routes.KeywordsUploadPath
	}))
	r.Use(apperrors.ErrorMiddleware())

	uploadLimiter := middleware.NewRateLimiter(rate.Limit(float64(cfg.UploadRatePerMinute)/60), cfg.UploadRatePerMinute, 10*time.Minute)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go uploadLimiter.Run(limiterCtx)

	// --- 4. Route Registration ---
	routes.RegisterRoutes(r, handlers, uploadLimiter)

	// --- 5. Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Sunbird Service starting",
			zap.String("port", cfg.Port),
			zap.String("dictionary_backend", cfg.DictionaryBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Sunbird Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zap.L().Error("Failed to close Redis", zap.Error(err))
		}
	}

	zap.L().Info("Sunbird Service stopped gracefully")
}
