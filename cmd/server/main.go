package main

import (
	"log"

	"github.com/chainvote/govboard/internal/bootstrap"
	"github.com/chainvote/govboard/internal/config"
	"github.com/chainvote/govboard/internal/model"
	"github.com/chainvote/govboard/internal/server"
	"github.com/chainvote/govboard/pkg/database"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedUsers(db); err != nil {
			log.Fatalf("failed to seed users: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set, leaderboard mirror disabled")
	}

	srv := server.NewServer(db, redisClient, cfg)
	if err := srv.Run(cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.ActivityRecord{},
		&model.ScoreMarker{},
		&model.ScoreOutbox{},
		&model.UserScore{},
	)
}
