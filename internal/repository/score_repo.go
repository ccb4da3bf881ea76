package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/chainvote/govboard/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreRepository interface {
	PendingDeltas(ctx context.Context, limit int) ([]model.ScoreOutbox, error)
	// Apply increments the user's running total and marks the outbox entry
	// applied in one transaction, so a crash between the two cannot double
	// count on retry.
	Apply(ctx context.Context, entry model.ScoreOutbox) error
	GetScore(ctx context.Context, network string, userID uint) (int, error)
	TopScores(ctx context.Context, network string, limit int) ([]model.UserScore, error)
}

type scoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) PendingDeltas(ctx context.Context, limit int) ([]model.ScoreOutbox, error) {
	var entries []model.ScoreOutbox
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *scoreRepository) Apply(ctx context.Context, entry model.ScoreOutbox) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		score := model.UserScore{
			UserID:  entry.UserID,
			Network: entry.Network,
			Score:   entry.Delta,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "network"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score": gorm.Expr("user_scores.score + ?", entry.Delta),
			}),
		}).Create(&score).Error
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&model.ScoreOutbox{}).
			Where("id = ? AND status = ?", entry.ID, model.OutboxPending).
			Updates(map[string]interface{}{
				"status":     model.OutboxApplied,
				"applied_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already applied by a concurrent worker; undo the increment.
			return fmt.Errorf("outbox entry %d no longer pending", entry.ID)
		}
		return nil
	})
}

func (r *scoreRepository) GetScore(ctx context.Context, network string, userID uint) (int, error) {
	var score model.UserScore
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND network = ?", userID, network).
		First(&score).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return score.Score, nil
}

func (r *scoreRepository) TopScores(ctx context.Context, network string, limit int) ([]model.UserScore, error) {
	var scores []model.UserScore
	err := r.db.WithContext(ctx).
		Where("network = ?", network).
		Order("score DESC").
		Limit(limit).
		Find(&scores).Error
	if err != nil {
		return nil, err
	}
	return scores, nil
}
