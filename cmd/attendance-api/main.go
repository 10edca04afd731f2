package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-attendance-api/api/swagger"
	"github.com/noah-isme/campus-attendance-api/internal/handler"
	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/cache"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	"github.com/noah-isme/campus-attendance-api/pkg/database"
	"github.com/noah-isme/campus-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
	"github.com/noah-isme/campus-attendance-api/pkg/storage"
)

// @title Campus Attendance API
// @version 1.0.0
// @description Student registration, approval and attendance tracking for students, teachers and admins
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	production := cfg.Env == config.EnvProduction
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	response.ExposeErrorDetails(!production)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		logr.Fatal("failed to apply schema", zap.Error(err))
	}
	cancel()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching and token revocation fall back to memory", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close() //nolint:errcheck
	}

	photos, err := storage.NewPhotoStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxFileBytes)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient, cache.RevokedTokenPrefix)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cache.ListingPrefix, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	creds := service.NewCredentialService(userRepo, logr)
	authSvc := service.NewAuthService(creds, userRepo, studentRepo, tokenRepo, metrics, validate, logr, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		TokenTTL: cfg.JWT.Expiration,
	})
	studentSvc := service.NewStudentService(studentRepo, creds, photos, cacheSvc, metrics, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, creds, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, cacheSvc, metrics, validate, logr)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileBytes + 1<<20
	// the auth rate limiter keys on ClientIP, so forwarded headers count only from listed proxies
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logr.Fatal("invalid trusted proxies", zap.Error(err))
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.SecurityHeaders(production))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, handler.RouteConfig{
		APIPrefix:    cfg.APIPrefix,
		UploadPrefix: cfg.Uploads.URLPrefix,
		UploadDir:    cfg.Uploads.Dir,
		Auth:         authSvc,
		AuthLimiter:  middleware.NewRateLimiter(cfg.Auth.RateLimitPerMinute),
	}, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, studentSvc),
		Admin:      handler.NewAdminHandler(teacherSvc),
		Teacher:    handler.NewTeacherHandler(studentSvc, attendanceSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Metrics:    handler.NewMetricsHandler(metrics, db),
	})

	if !production {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
