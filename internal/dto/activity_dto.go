package dto

import "time"

// RecordActivityRequest is the flat inbound contract: the populated subset of
// fields decides which event variant the handler builds, reaction fields
// taking priority over reply, reply over comment, comment over post.
type RecordActivityRequest struct {
	Network      string `json:"network" binding:"required"`
	PostID       uint   `json:"post_id" binding:"required"`
	PostType     string `json:"post_type" binding:"required"`
	PostAuthorID uint   `json:"post_author_id"`
	Content      string `json:"content"`

	CommentID       string `json:"comment_id"`
	CommentAuthorID uint   `json:"comment_author_id"`

	ReplyID       string `json:"reply_id"`
	ReplyAuthorID uint   `json:"reply_author_id"`

	ReactionID       string `json:"reaction_id"`
	ReactionAuthorID uint   `json:"reaction_author_id"`
}

type ActivityResponse struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Network          string    `json:"network"`
	PostID           uint      `json:"post_id"`
	PostType         string    `json:"post_type"`
	CommentID        *string   `json:"comment_id,omitempty"`
	ReplyID          *string   `json:"reply_id,omitempty"`
	ReactionID       *string   `json:"reaction_id,omitempty"`
	MentionedUserIDs []uint    `json:"mentioned_user_ids,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type ScoreResponse struct {
	UserID  uint   `json:"user_id"`
	Network string `json:"network"`
	Score   int    `json:"score"`
}

type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
