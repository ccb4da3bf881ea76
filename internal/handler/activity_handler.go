package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/chainvote/govboard/internal/dto"
	"github.com/chainvote/govboard/internal/service"
	"github.com/chainvote/govboard/pkg/response"
	appvalidator "github.com/chainvote/govboard/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RecordCreate(c *gin.Context) {
	h.record(c, service.ActionCreate)
}

func (h *ActivityHandler) RecordEdit(c *gin.Context) {
	h.record(c, service.ActionEdit)
}

func (h *ActivityHandler) RecordDelete(c *gin.Context) {
	h.record(c, service.ActionDelete)
}

// record accepts the flat inbound contract, rewrites the acting author field
// to the authenticated user and hands off to the ledger in the background.
// The response never depends on the ledger outcome.
func (h *ActivityHandler) record(c *gin.Context, action service.Action) {
	var req dto.RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": appvalidator.FormatValidationError(err)})
		return
	}

	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	activity := buildActivity(req, actorID)

	go h.activityService.Record(context.Background(), action, activity)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *ActivityHandler) ListByActor(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	network := c.Query("network")
	if network == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "network is required"})
		return
	}

	records, err := h.activityService.ListByActor(c.Request.Context(), network, uint(userID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	out := make([]dto.ActivityResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, dto.ActivityResponse{
			ID:               rec.ID.String(),
			Kind:             string(rec.Kind),
			Network:          rec.Network,
			PostID:           rec.PostID,
			PostType:         rec.PostType,
			CommentID:        rec.CommentID,
			ReplyID:          rec.ReplyID,
			ReactionID:       rec.ReactionID,
			MentionedUserIDs: rec.MentionedUserIDs,
			CreatedAt:        rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// buildActivity maps the flat request onto the event variant, reaction fields
// taking priority over reply, reply over comment, comment over post. The
// author field of the selected scope is always the authenticated actor.
func buildActivity(req dto.RecordActivityRequest, actorID uint) service.Activity {
	switch {
	case req.ReactionID != "":
		return service.ReactionActivity{
			Network:          req.Network,
			ReactionID:       req.ReactionID,
			ReactionAuthorID: actorID,
			PostID:           req.PostID,
			PostType:         req.PostType,
			PostAuthorID:     req.PostAuthorID,
			CommentID:        req.CommentID,
			CommentAuthorID:  req.CommentAuthorID,
			ReplyID:          req.ReplyID,
			ReplyAuthorID:    req.ReplyAuthorID,
		}
	case req.ReplyID != "":
		return service.ReplyActivity{
			Network:         req.Network,
			PostID:          req.PostID,
			PostType:        req.PostType,
			PostAuthorID:    req.PostAuthorID,
			CommentID:       req.CommentID,
			CommentAuthorID: req.CommentAuthorID,
			ReplyID:         req.ReplyID,
			ReplyAuthorID:   actorID,
			Content:         req.Content,
		}
	case req.CommentID != "":
		return service.CommentActivity{
			Network:         req.Network,
			PostID:          req.PostID,
			PostType:        req.PostType,
			PostAuthorID:    req.PostAuthorID,
			CommentID:       req.CommentID,
			CommentAuthorID: actorID,
			Content:         req.Content,
		}
	default:
		return service.PostActivity{
			Network:      req.Network,
			PostID:       req.PostID,
			PostType:     req.PostType,
			PostAuthorID: req.PostAuthorID,
			Content:      req.Content,
			ActorID:      &actorID,
		}
	}
}
