package service

import (
	"context"
	"log"
	"strings"

	"github.com/chainvote/govboard/internal/config"
	"github.com/chainvote/govboard/internal/model"
	"github.com/chainvote/govboard/internal/repository"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

const (
	ReasonPostCreated     = "post_created"
	ReasonFirstComment    = "first_comment"
	ReasonCommentRemoved  = "comment_removed"
	ReasonFirstReply      = "first_reply"
	ReasonReplyRemoved    = "reply_removed"
	ReasonReactionAdded   = "reaction_added"
	ReasonReactionRemoved = "reaction_removed"
)

// Activity is the sealed set of event variants the ledger records. Each
// variant carries only the fields relevant to its scope, so routing is a
// type switch rather than a chain of presence checks.
type Activity interface {
	isActivity()
}

// ReactionActivity covers a reaction on a post, a comment or a reply. The
// optional comment/reply fields narrow the scope of the record.
type ReactionActivity struct {
	Network          string
	ReactionID       string
	ReactionAuthorID uint
	PostID           uint
	PostType         string
	PostAuthorID     uint
	CommentID        string
	CommentAuthorID  uint
	ReplyID          string
	ReplyAuthorID    uint
}

type CommentActivity struct {
	Network         string
	PostID          uint
	PostType        string
	PostAuthorID    uint
	CommentID       string
	CommentAuthorID uint
	Content         string
}

type ReplyActivity struct {
	Network         string
	PostID          uint
	PostType        string
	PostAuthorID    uint
	CommentID       string
	CommentAuthorID uint
	ReplyID         string
	ReplyAuthorID   uint
	Content         string
}

// PostActivity records mentions made in a post body and the post-creation
// award. ActorID is nil when the post was submitted by a guest; guest posts
// still record mentions but never score.
type PostActivity struct {
	Network      string
	PostID       uint
	PostType     string
	PostAuthorID uint
	Content      string
	ActorID      *uint
}

func (ReactionActivity) isActivity() {}
func (CommentActivity) isActivity()  {}
func (ReplyActivity) isActivity()    {}
func (PostActivity) isActivity()     {}

type ActivityService interface {
	// Record applies one create/edit/delete transition. It never returns an
	// error: the ledger is a best-effort side channel and failures must not
	// reach the caller's primary action. Everything is logged instead.
	Record(ctx context.Context, action Action, activity Activity)
	ListByActor(ctx context.Context, network string, actorID uint) ([]model.ActivityRecord, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
	userRepo     repository.UserRepository
	scores       config.ScoreTable
}

func NewActivityService(activityRepo repository.ActivityRepository, userRepo repository.UserRepository, scores config.ScoreTable) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		userRepo:     userRepo,
		scores:       scores,
	}
}

func (s *activityService) Record(ctx context.Context, action Action, activity Activity) {
	var err error
	switch a := activity.(type) {
	case ReactionActivity:
		err = s.recordReaction(ctx, action, a)
	case CommentActivity:
		err = s.recordComment(ctx, action, a)
	case ReplyActivity:
		err = s.recordReply(ctx, action, a)
	case PostActivity:
		err = s.recordPost(ctx, action, a)
	default:
		log.Printf("activity: unknown variant %T, skipping", activity)
		return
	}
	if err != nil {
		log.Printf("activity: %s %T not recorded: %v", action, activity, err)
	}
}

func (s *activityService) ListByActor(ctx context.Context, network string, actorID uint) ([]model.ActivityRecord, error) {
	return s.activityRepo.FindActive(ctx, repository.ActivityFilter{
		Network: network,
		ActorID: &actorID,
	})
}

func (s *activityService) recordReaction(ctx context.Context, action Action, a ReactionActivity) error {
	if a.Network == "" || a.ReactionID == "" || a.ReactionAuthorID == 0 || a.PostID == 0 || a.PostAuthorID == 0 {
		log.Println("activity: reaction event missing required fields, skipping")
		return nil
	}

	switch action {
	case ActionCreate:
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			rec := &model.ActivityRecord{
				Kind:             model.KindReacted,
				Network:          a.Network,
				ActorID:          uintPtr(a.ReactionAuthorID),
				PostID:           a.PostID,
				PostType:         a.PostType,
				PostAuthorID:     a.PostAuthorID,
				ReactionID:       strPtr(a.ReactionID),
				ReactionAuthorID: uintPtr(a.ReactionAuthorID),
				CommentID:        optStr(a.CommentID),
				CommentAuthorID:  optUint(a.CommentAuthorID),
				ReplyID:          optStr(a.ReplyID),
				ReplyAuthorID:    optUint(a.ReplyAuthorID),
			}
			if err := tx.Create(rec); err != nil {
				return err
			}
			return tx.Enqueue(&model.ScoreOutbox{
				Network: a.Network,
				UserID:  a.ReactionAuthorID,
				Reason:  ReasonReactionAdded,
				Delta:   s.scores.Reaction,
			})
		})

	case ActionDelete:
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			// The actor filter is the access control here: only the
			// reaction author's own records can be retired.
			n, err := tx.SoftDelete(repository.ActivityFilter{
				Network:    a.Network,
				Kind:       model.KindReacted,
				ActorID:    uintPtr(a.ReactionAuthorID),
				ReactionID: strPtr(a.ReactionID),
			})
			if err != nil {
				return err
			}
			if n == 0 {
				// Nothing was ever recorded (or already deleted); the
				// reversal must not fire.
				return nil
			}
			return tx.Enqueue(&model.ScoreOutbox{
				Network: a.Network,
				UserID:  a.ReactionAuthorID,
				Reason:  ReasonReactionRemoved,
				Delta:   -s.scores.Reaction,
			})
		})

	default:
		log.Printf("activity: reactions do not support %s, skipping", action)
		return nil
	}
}

func (s *activityService) recordComment(ctx context.Context, action Action, a CommentActivity) error {
	if a.Network == "" || a.CommentID == "" || a.CommentAuthorID == 0 || a.PostID == 0 || a.PostAuthorID == 0 {
		log.Println("activity: comment event missing required fields, skipping")
		return nil
	}

	switch action {
	case ActionCreate:
		mentions := s.extractMentions(ctx, a.Content)
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			if len(mentions) > 0 {
				if err := tx.Create(&model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          uintPtr(a.CommentAuthorID),
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					CommentID:        strPtr(a.CommentID),
					CommentAuthorID:  uintPtr(a.CommentAuthorID),
					MentionedUserIDs: mentions,
				}); err != nil {
					return err
				}
			}
			if err := tx.Create(&model.ActivityRecord{
				Kind:            model.KindCommented,
				Network:         a.Network,
				ActorID:         uintPtr(a.CommentAuthorID),
				PostID:          a.PostID,
				PostType:        a.PostType,
				PostAuthorID:    a.PostAuthorID,
				CommentID:       strPtr(a.CommentID),
				CommentAuthorID: uintPtr(a.CommentAuthorID),
			}); err != nil {
				return err
			}

			claimed, err := tx.ClaimMarker(a.Network, model.KindCommented, a.CommentAuthorID, a.PostID)
			if err != nil {
				return err
			}
			if !claimed {
				return nil
			}
			return tx.Enqueue(&model.ScoreOutbox{
				Network: a.Network,
				UserID:  a.CommentAuthorID,
				Reason:  ReasonFirstComment,
				Delta:   s.scores.FirstComment,
			})
		})

	case ActionEdit:
		// An edit never touches the commented record or the score; it
		// retires the old mention set and records the new one.
		return s.replaceMentions(ctx, a.Content,
			repository.ActivityFilter{
				Network:   a.Network,
				Kind:      model.KindMentioned,
				ActorID:   uintPtr(a.CommentAuthorID),
				CommentID: strPtr(a.CommentID),
				NoReply:   true,
			},
			func(mentions []uint) *model.ActivityRecord {
				return &model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          uintPtr(a.CommentAuthorID),
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					CommentID:        strPtr(a.CommentID),
					CommentAuthorID:  uintPtr(a.CommentAuthorID),
					MentionedUserIDs: mentions,
				}
			})

	case ActionDelete:
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			if _, err := tx.SoftDelete(repository.ActivityFilter{
				Network:   a.Network,
				Kinds:     []model.ActivityKind{model.KindCommented, model.KindMentioned, model.KindReacted},
				CommentID: strPtr(a.CommentID),
			}); err != nil {
				return err
			}
			return s.reverseIfLast(tx, a.Network, model.KindCommented, a.CommentAuthorID, a.PostID,
				ReasonCommentRemoved, -s.scores.FirstComment)
		})
	}
	return nil
}

func (s *activityService) recordReply(ctx context.Context, action Action, a ReplyActivity) error {
	if a.Network == "" || a.ReplyID == "" || a.ReplyAuthorID == 0 || a.CommentID == "" || a.PostID == 0 || a.PostAuthorID == 0 {
		log.Println("activity: reply event missing required fields, skipping")
		return nil
	}

	switch action {
	case ActionCreate:
		mentions := s.extractMentions(ctx, a.Content)
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			if len(mentions) > 0 {
				if err := tx.Create(&model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          uintPtr(a.ReplyAuthorID),
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					CommentID:        strPtr(a.CommentID),
					CommentAuthorID:  optUint(a.CommentAuthorID),
					ReplyID:          strPtr(a.ReplyID),
					ReplyAuthorID:    uintPtr(a.ReplyAuthorID),
					MentionedUserIDs: mentions,
				}); err != nil {
					return err
				}
			}
			// A replied record always carries its parent comment.
			if err := tx.Create(&model.ActivityRecord{
				Kind:            model.KindReplied,
				Network:         a.Network,
				ActorID:         uintPtr(a.ReplyAuthorID),
				PostID:          a.PostID,
				PostType:        a.PostType,
				PostAuthorID:    a.PostAuthorID,
				CommentID:       strPtr(a.CommentID),
				CommentAuthorID: optUint(a.CommentAuthorID),
				ReplyID:         strPtr(a.ReplyID),
				ReplyAuthorID:   uintPtr(a.ReplyAuthorID),
			}); err != nil {
				return err
			}

			claimed, err := tx.ClaimMarker(a.Network, model.KindReplied, a.ReplyAuthorID, a.PostID)
			if err != nil {
				return err
			}
			if !claimed {
				return nil
			}
			return tx.Enqueue(&model.ScoreOutbox{
				Network: a.Network,
				UserID:  a.ReplyAuthorID,
				Reason:  ReasonFirstReply,
				Delta:   s.scores.FirstReply,
			})
		})

	case ActionEdit:
		return s.replaceMentions(ctx, a.Content,
			repository.ActivityFilter{
				Network: a.Network,
				Kind:    model.KindMentioned,
				ActorID: uintPtr(a.ReplyAuthorID),
				ReplyID: strPtr(a.ReplyID),
			},
			func(mentions []uint) *model.ActivityRecord {
				return &model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          uintPtr(a.ReplyAuthorID),
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					CommentID:        strPtr(a.CommentID),
					CommentAuthorID:  optUint(a.CommentAuthorID),
					ReplyID:          strPtr(a.ReplyID),
					ReplyAuthorID:    uintPtr(a.ReplyAuthorID),
					MentionedUserIDs: mentions,
				}
			})

	case ActionDelete:
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			if _, err := tx.SoftDelete(repository.ActivityFilter{
				Network: a.Network,
				Kinds:   []model.ActivityKind{model.KindReplied, model.KindMentioned, model.KindReacted},
				ReplyID: strPtr(a.ReplyID),
			}); err != nil {
				return err
			}
			return s.reverseIfLast(tx, a.Network, model.KindReplied, a.ReplyAuthorID, a.PostID,
				ReasonReplyRemoved, -s.scores.FirstReply)
		})
	}
	return nil
}

func (s *activityService) recordPost(ctx context.Context, action Action, a PostActivity) error {
	if a.Network == "" || a.PostID == 0 || a.PostAuthorID == 0 {
		log.Println("activity: post event missing required fields, skipping")
		return nil
	}

	switch action {
	case ActionCreate:
		mentions := s.extractMentions(ctx, a.Content)
		return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
			if len(mentions) > 0 {
				if err := tx.Create(&model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          a.ActorID,
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					MentionedUserIDs: mentions,
				}); err != nil {
					return err
				}
			}
			if a.ActorID == nil {
				return nil
			}
			// Every post creation scores; there is no first-occurrence gate.
			return tx.Enqueue(&model.ScoreOutbox{
				Network: a.Network,
				UserID:  *a.ActorID,
				Reason:  ReasonPostCreated,
				Delta:   s.scores.PostCreated,
			})
		})

	case ActionEdit:
		if a.ActorID == nil {
			log.Println("activity: post edit without actor, skipping")
			return nil
		}
		return s.replaceMentions(ctx, a.Content,
			repository.ActivityFilter{
				Network:   a.Network,
				Kind:      model.KindMentioned,
				ActorID:   a.ActorID,
				PostID:    &a.PostID,
				NoComment: true,
				NoReply:   true,
			},
			func(mentions []uint) *model.ActivityRecord {
				return &model.ActivityRecord{
					Kind:             model.KindMentioned,
					Network:          a.Network,
					ActorID:          a.ActorID,
					PostID:           a.PostID,
					PostType:         a.PostType,
					PostAuthorID:     a.PostAuthorID,
					MentionedUserIDs: mentions,
				}
			})

	case ActionDelete:
		// Post removal runs through the post lifecycle, not the ledger.
		log.Println("activity: post deletion is handled by the post lifecycle, skipping")
		return nil
	}
	return nil
}

// reverseIfLast releases the score marker and enqueues the reversal when the
// actor's last active record of the kind on the post is gone. A repeat delete
// finds the marker already released and enqueues nothing.
func (s *activityService) reverseIfLast(tx *repository.ActivityTx, network string, kind model.ActivityKind, actorID, postID uint, reason string, delta int) error {
	remaining, err := tx.CountActive(repository.ActivityFilter{
		Network: network,
		Kind:    kind,
		ActorID: &actorID,
		PostID:  &postID,
	})
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	released, err := tx.ReleaseMarker(network, kind, actorID, postID)
	if err != nil {
		return err
	}
	if !released {
		return nil
	}
	return tx.Enqueue(&model.ScoreOutbox{
		Network: network,
		UserID:  actorID,
		Reason:  reason,
		Delta:   delta,
	})
}

// replaceMentions soft-deletes the actor's previous mention records matching
// del and writes a fresh one for the new mention set, in one batch.
func (s *activityService) replaceMentions(ctx context.Context, content string, del repository.ActivityFilter, fresh func(mentions []uint) *model.ActivityRecord) error {
	mentions := s.extractMentions(ctx, content)
	return s.activityRepo.InTx(ctx, func(tx *repository.ActivityTx) error {
		if _, err := tx.SoftDelete(del); err != nil {
			return err
		}
		if len(mentions) == 0 {
			return nil
		}
		return tx.Create(fresh(mentions))
	})
}

func (s *activityService) extractMentions(ctx context.Context, content string) []uint {
	if !strings.Contains(content, "user/") {
		return nil
	}
	index, err := s.userRepo.UsernameIndex(ctx)
	if err != nil {
		log.Printf("activity: username index unavailable, dropping mentions: %v", err)
		return nil
	}
	return ExtractMentions(content, index)
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func optUint(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}

func optStr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
