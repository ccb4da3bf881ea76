package handler

import (
	"net/http"
	"strconv"

	"github.com/chainvote/govboard/internal/dto"
	"github.com/chainvote/govboard/internal/service"
	"github.com/chainvote/govboard/pkg/response"
	"github.com/gin-gonic/gin"
)

const defaultLeaderboardSize = 25

type ScoreHandler struct {
	scoreService service.ScoreService
}

func NewScoreHandler(scoreService service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

func (h *ScoreHandler) GetUserScore(c *gin.Context) {
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

	score, err := h.scoreService.GetScore(c.Request.Context(), network, uint(userID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ScoreResponse{
		UserID:  uint(userID),
		Network: network,
		Score:   score,
	})
}

func (h *ScoreHandler) GetLeaderboard(c *gin.Context) {
	network := c.Param("network")

	limit := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.scoreService.Leaderboard(c.Request.Context(), network, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
