package server

import (
	"context"
	"log"
	"strings"

	"github.com/chainvote/govboard/internal/config"
	"github.com/chainvote/govboard/internal/handler"
	"github.com/chainvote/govboard/internal/middleware"
	"github.com/chainvote/govboard/internal/repository"
	"github.com/chainvote/govboard/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Server {
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	scoreRepo := repository.NewScoreRepository(db)

	activitySvc := service.NewActivityService(activityRepo, userRepo, cfg.Scores)
	activityHandler := handler.NewActivityHandler(activitySvc)

	scoreSvc := service.NewScoreService(scoreRepo, userRepo, redisClient)
	scoreHandler := handler.NewScoreHandler(scoreSvc)

	go scoreSvc.StartWorker(context.Background(), cfg.OutboxPollInterval)

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	api := router.Group("/api/v1")
	{
		api.GET("/leaderboard/:network", scoreHandler.GetLeaderboard)
		api.GET("/users/:id/score", scoreHandler.GetUserScore)
		api.GET("/users/:id/activities", activityHandler.ListByActor)

		protected := api.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.POST("/activities", activityHandler.RecordCreate)
			protected.PATCH("/activities", activityHandler.RecordEdit)
			protected.DELETE("/activities", activityHandler.RecordDelete)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(port string) error {
	log.Printf("🚀 Activity ledger listening on :%s", port)
	return s.engine.Run(":" + port)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))
}
