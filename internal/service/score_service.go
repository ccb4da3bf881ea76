package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/chainvote/govboard/internal/dto"
	"github.com/chainvote/govboard/internal/repository"
	"github.com/redis/go-redis/v9"
)

const outboxBatchSize = 100

type ScoreService interface {
	GetScore(ctx context.Context, network string, userID uint) (int, error)
	Leaderboard(ctx context.Context, network string, limit int) ([]dto.LeaderboardEntry, error)
	// ApplyPending drains one batch of pending deltas and returns how many
	// were applied. Failed entries stay pending and are retried next round.
	ApplyPending(ctx context.Context) (int, error)
	StartWorker(ctx context.Context, interval time.Duration)
}

type scoreService struct {
	repo        repository.ScoreRepository
	userRepo    repository.UserRepository
	redisClient *redis.Client
}

func NewScoreService(repo repository.ScoreRepository, userRepo repository.UserRepository, redisClient *redis.Client) ScoreService {
	return &scoreService{
		repo:        repo,
		userRepo:    userRepo,
		redisClient: redisClient,
	}
}

func (s *scoreService) GetScore(ctx context.Context, network string, userID uint) (int, error) {
	return s.repo.GetScore(ctx, network, userID)
}

func (s *scoreService) ApplyPending(ctx context.Context) (int, error) {
	entries, err := s.repo.PendingDeltas(ctx, outboxBatchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, entry := range entries {
		if err := s.repo.Apply(ctx, entry); err != nil {
			log.Printf("score: failed to apply delta %d for user %d: %v", entry.ID, entry.UserID, err)
			continue
		}
		applied++
		s.mirror(ctx, entry.Network, entry.UserID, entry.Delta)
	}
	return applied, nil
}

func (s *scoreService) StartWorker(ctx context.Context, interval time.Duration) {
	log.Println("🏆 Score worker started...")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Score worker stopped.")
			return
		case <-ticker.C:
			if _, err := s.ApplyPending(ctx); err != nil {
				log.Printf("Score worker error: %v", err)
			}
		}
	}
}

// mirror pushes the applied delta into the Redis leaderboard and publishes a
// score-change event. Best effort: the DB total is authoritative.
func (s *scoreService) mirror(ctx context.Context, network string, userID uint, delta int) {
	if s.redisClient == nil {
		return
	}

	member := strconv.FormatUint(uint64(userID), 10)
	if err := s.redisClient.ZIncrBy(ctx, leaderboardKey(network), float64(delta), member).Err(); err != nil {
		log.Printf("score: redis leaderboard update failed: %v", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"network": network,
		"delta":   delta,
	})
	if err == nil {
		s.redisClient.Publish(ctx, scoreChannel(network), payload)
	}
}

func (s *scoreService) Leaderboard(ctx context.Context, network string, limit int) ([]dto.LeaderboardEntry, error) {
	if s.redisClient != nil {
		members, err := s.redisClient.ZRevRangeWithScores(ctx, leaderboardKey(network), 0, int64(limit-1)).Result()
		if err == nil && len(members) > 0 {
			entries := make([]dto.LeaderboardEntry, 0, len(members))
			for i, m := range members {
				id, err := strconv.ParseUint(fmt.Sprint(m.Member), 10, 64)
				if err != nil {
					continue
				}
				entries = append(entries, dto.LeaderboardEntry{
					Position: i + 1,
					UserID:   uint(id),
					Username: s.usernameOf(ctx, uint(id)),
					Score:    int(m.Score),
				})
			}
			return entries, nil
		}
	}

	// Redis unavailable or empty, fall back to the authoritative totals.
	scores, err := s.repo.TopScores(ctx, network, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]dto.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, dto.LeaderboardEntry{
			Position: i + 1,
			UserID:   score.UserID,
			Username: s.usernameOf(ctx, score.UserID),
			Score:    score.Score,
		})
	}
	return entries, nil
}

func (s *scoreService) usernameOf(ctx context.Context, userID uint) string {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Username
}

func leaderboardKey(network string) string {
	return fmt.Sprintf("leaderboard:%s", network)
}

func scoreChannel(network string) string {
	return fmt.Sprintf("score_changes:%s", network)
}
