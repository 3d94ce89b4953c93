package handler

import (
	"net/http"
	"strconv"

	"anoa.com/ctfarena/internal/service"
	"anoa.com/ctfarena/pkg/response"
	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	leaderboard  service.LeaderboardService
	defaultLimit int
}

func NewLeaderboardHandler(leaderboard service.LeaderboardService, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard:  leaderboard,
		defaultLimit: defaultLimit,
	}
}

func (h *LeaderboardHandler) GetRanks(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	list, err := h.leaderboard.GetRanks(c.Request.Context(), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *LeaderboardHandler) GetMyRank(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	rank, err := h.leaderboard.GetUserRank(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if rank == nil {
		c.JSON(http.StatusOK, gin.H{"rank": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rank": rank})
}

func (h *LeaderboardHandler) GetTopGraph(c *gin.Context) {
	graphs, err := h.leaderboard.GetTopUsersGraph(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"graphs": graphs})
}

func (h *LeaderboardHandler) GetMyGraph(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	graph, err := h.leaderboard.GetUserGraph(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, graph)
}
