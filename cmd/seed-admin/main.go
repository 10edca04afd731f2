package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	"github.com/noah-isme/campus-attendance-api/pkg/database"
	"github.com/noah-isme/campus-attendance-api/pkg/logger"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	admins := service.NewAdminService(users, service.NewCredentialService(users, logr), nil, logr)

	created, err := admins.Seed(ctx, models.CreateAdminRequest{
		UserID:   cfg.Seed.UserID,
		Password: cfg.Seed.Password,
		Name:     cfg.Seed.Name,
		Email:    cfg.Seed.Email,
	})
	if err != nil {
		logr.Fatal("failed to seed admin", zap.Error(err))
	}
	if created {
		logr.Info("admin seeded", zap.String("user_id", cfg.Seed.UserID))
	}
}
