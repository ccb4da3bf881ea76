package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityKind string

const (
	KindCommented ActivityKind = "commented"
	KindReplied   ActivityKind = "replied"
	KindReacted   ActivityKind = "reacted"
	KindMentioned ActivityKind = "mentioned"
)

// ActivityRecord is one durable entry describing a single user action against
// a governance post. Records are soft-deleted only; history is never removed.
type ActivityRecord struct {
	ID      uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind    ActivityKind `gorm:"size:20;not null;index:idx_activity_scope,priority:2" json:"kind"`
	Network string       `gorm:"size:32;not null;index:idx_activity_scope,priority:1" json:"network"`

	// ActorID is nil for mention records written on behalf of a guest.
	ActorID *uint `gorm:"index" json:"actor_id,omitempty"`

	PostID       uint   `gorm:"not null;index:idx_activity_scope,priority:3" json:"post_id"`
	PostType     string `gorm:"size:50;not null" json:"post_type"`
	PostAuthorID uint   `json:"post_author_id"`

	CommentID       *string `gorm:"size:64;index" json:"comment_id,omitempty"`
	CommentAuthorID *uint   `json:"comment_author_id,omitempty"`

	ReplyID       *string `gorm:"size:64;index" json:"reply_id,omitempty"`
	ReplyAuthorID *uint   `json:"reply_author_id,omitempty"`

	ReactionID       *string `gorm:"size:64;index" json:"reaction_id,omitempty"`
	ReactionAuthorID *uint   `json:"reaction_author_id,omitempty"`

	// Present only on mentioned records; never empty when present.
	MentionedUserIDs []uint `gorm:"serializer:json" json:"mentioned_user_ids,omitempty"`

	IsDeleted bool      `gorm:"default:false;index" json:"is_deleted"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *ActivityRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

// ScoreMarker claims the one-time award for a (network, kind, actor, post)
// tuple. The composite primary key is the idempotency guarantee: the insert
// that wins the conflict is the only writer allowed to enqueue the delta.
type ScoreMarker struct {
	Network   string       `gorm:"size:32;primaryKey" json:"network"`
	Kind      ActivityKind `gorm:"size:20;primaryKey" json:"kind"`
	ActorID   uint         `gorm:"primaryKey" json:"actor_id"`
	PostID    uint         `gorm:"primaryKey" json:"post_id"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

const (
	OutboxPending = "pending"
	OutboxApplied = "applied"
)

// ScoreOutbox is a pending reputation delta, written in the same transaction
// as the activity records it belongs to and applied by the score worker.
type ScoreOutbox struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Network   string     `gorm:"size:32;not null" json:"network"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Reason    string     `gorm:"size:50;not null" json:"reason"`
	Delta     int        `gorm:"not null" json:"delta"`
	Status    string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// UserScore is the running reputation total per user and network, mutated
// only through applied outbox deltas.
type UserScore struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Network   string    `gorm:"size:32;primaryKey" json:"network"`
	Score     int       `gorm:"not null;default:0" json:"score"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
