package handler

import (
	"net/http"

	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/service"
	"anoa.com/ctfarena/pkg/response"
	"anoa.com/ctfarena/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PlayHandler struct {
	submissions service.SubmissionService
	hints       service.HintService
	userLocks   *service.UserLocks
}

func NewPlayHandler(submissions service.SubmissionService, hints service.HintService, userLocks *service.UserLocks) *PlayHandler {
	return &PlayHandler{
		submissions: submissions,
		hints:       hints,
		userLocks:   userLocks,
	}
}

func (h *PlayHandler) SubmitFlag(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SubmitFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	challengeID, _ := uuid.Parse(req.ChallengeID)

	if !h.userLocks.TryAcquire(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "another submission is being processed"})
		return
	}
	defer h.userLocks.Release(userID)

	status, err := h.submissions.SubmitFlag(c.Request.Context(), userID, challengeID, req.Flag)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *PlayHandler) UseHint(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UseHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	hintID, _ := uuid.Parse(req.HintID)

	if !h.userLocks.TryAcquire(userID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "another submission is being processed"})
		return
	}
	defer h.userLocks.Release(userID)

	content, err := h.hints.UseHint(c.Request.Context(), userID, hintID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}
