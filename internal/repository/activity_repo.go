package repository

import (
	"context"

	"github.com/chainvote/govboard/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityFilter is an AND-composed equality filter over activity records.
// Zero-valued fields are not applied. NoComment/NoReply additionally require
// the scope column to be NULL, so comment-scoped and post-scoped mention
// records can be addressed without touching narrower scopes.
type ActivityFilter struct {
	Network    string
	Kind       model.ActivityKind
	Kinds      []model.ActivityKind
	ActorID    *uint
	PostID     *uint
	CommentID  *string
	ReplyID    *string
	ReactionID *string
	NoComment  bool
	NoReply    bool
}

func (f ActivityFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.Network != "" {
		tx = tx.Where("network = ?", f.Network)
	}
	if f.Kind != "" {
		tx = tx.Where("kind = ?", f.Kind)
	}
	if len(f.Kinds) > 0 {
		tx = tx.Where("kind IN ?", f.Kinds)
	}
	if f.ActorID != nil {
		tx = tx.Where("actor_id = ?", *f.ActorID)
	}
	if f.PostID != nil {
		tx = tx.Where("post_id = ?", *f.PostID)
	}
	if f.CommentID != nil {
		tx = tx.Where("comment_id = ?", *f.CommentID)
	}
	if f.ReplyID != nil {
		tx = tx.Where("reply_id = ?", *f.ReplyID)
	}
	if f.ReactionID != nil {
		tx = tx.Where("reaction_id = ?", *f.ReactionID)
	}
	if f.NoComment {
		tx = tx.Where("comment_id IS NULL")
	}
	if f.NoReply {
		tx = tx.Where("reply_id IS NULL")
	}
	return tx.Where("is_deleted = ?", false)
}

type ActivityRepository interface {
	FindActive(ctx context.Context, f ActivityFilter) ([]model.ActivityRecord, error)
	CountActive(ctx context.Context, f ActivityFilter) (int64, error)
	// InTx runs fn inside a single transaction; every write of one logical
	// action goes through the same ActivityTx so the batch commits atomically.
	InTx(ctx context.Context, fn func(tx *ActivityTx) error) error
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) FindActive(ctx context.Context, f ActivityFilter) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	q := f.apply(r.db.WithContext(ctx).Model(&model.ActivityRecord{}))
	if err := q.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *activityRepository) CountActive(ctx context.Context, f ActivityFilter) (int64, error) {
	var count int64
	q := f.apply(r.db.WithContext(ctx).Model(&model.ActivityRecord{}))
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *activityRepository) InTx(ctx context.Context, fn func(tx *ActivityTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		return fn(&ActivityTx{db: g})
	})
}

// ActivityTx is the write surface available inside one batch commit.
type ActivityTx struct {
	db *gorm.DB
}

func (t *ActivityTx) Create(rec *model.ActivityRecord) error {
	return t.db.Create(rec).Error
}

// SoftDelete marks every active record matching f as deleted and reports how
// many rows changed. Records are never physically removed.
func (t *ActivityTx) SoftDelete(f ActivityFilter) (int64, error) {
	res := f.apply(t.db.Model(&model.ActivityRecord{})).
		Update("is_deleted", true)
	return res.RowsAffected, res.Error
}

func (t *ActivityTx) CountActive(f ActivityFilter) (int64, error) {
	var count int64
	err := f.apply(t.db.Model(&model.ActivityRecord{})).Count(&count).Error
	return count, err
}

// ClaimMarker inserts the score marker for (network, kind, actor, post) and
// reports whether this writer won it. A conflict means the award was already
// claimed by an earlier create.
func (t *ActivityTx) ClaimMarker(network string, kind model.ActivityKind, actorID, postID uint) (bool, error) {
	marker := model.ScoreMarker{
		Network: network,
		Kind:    kind,
		ActorID: actorID,
		PostID:  postID,
	}
	res := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseMarker removes the claim, re-arming the award for a future create.
// Reports whether a marker actually existed, which gates score reversal.
func (t *ActivityTx) ReleaseMarker(network string, kind model.ActivityKind, actorID, postID uint) (bool, error) {
	res := t.db.
		Where("network = ? AND kind = ? AND actor_id = ? AND post_id = ?", network, kind, actorID, postID).
		Delete(&model.ScoreMarker{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *ActivityTx) Enqueue(entry *model.ScoreOutbox) error {
	if entry.Status == "" {
		entry.Status = model.OutboxPending
	}
	return t.db.Create(entry).Error
}
