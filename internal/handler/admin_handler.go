package handler

import (
	"context"
	"net/http"

	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/model"
	"anoa.com/ctfarena/internal/service"
	"anoa.com/ctfarena/pkg/response"
	"anoa.com/ctfarena/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	admin service.AdminService
}

func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	visible := true
	if req.VisibleOnLeaderboard != nil {
		visible = *req.VisibleOnLeaderboard
	}

	user, err := h.admin.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password, visible)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	h.deleteByID(c, h.admin.DeleteUser)
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.admin.CreateCategory(c.Request.Context(), category); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *AdminHandler) CreateChallenge(c *gin.Context) {
	var req dto.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	categoryID, _ := uuid.Parse(req.CategoryID)

	challenge := &model.Challenge{
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     req.Description,
		Points:          req.Points,
		DeadlineEnabled: req.DeadlineEnabled,
		Deadline:        req.Deadline,
		MaxAttempts:     req.MaxAttempts,
		Flags:           req.Flags,
	}
	if err := h.admin.CreateChallenge(c.Request.Context(), challenge); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

func (h *AdminHandler) CreateHint(c *gin.Context) {
	var req dto.CreateHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	challengeID, _ := uuid.Parse(req.ChallengeID)

	hint := &model.Hint{
		ChallengeID: challengeID,
		Content:     req.Content,
		Deduction:   req.Deduction,
	}
	if err := h.admin.CreateHint(c.Request.Context(), hint); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, hint)
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	h.deleteByID(c, h.admin.DeleteCategory)
}

func (h *AdminHandler) DeleteChallenge(c *gin.Context) {
	h.deleteByID(c, h.admin.DeleteChallenge)
}

func (h *AdminHandler) DeleteHint(c *gin.Context) {
	h.deleteByID(c, h.admin.DeleteHint)
}

func (h *AdminHandler) deleteByID(c *gin.Context, del func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := del(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminHandler) AllowSubmissions(c *gin.Context) {
	if err := h.admin.AllowSubmissions(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "submissions enabled"})
}

func (h *AdminHandler) DenySubmissions(c *gin.Context) {
	if err := h.admin.DenySubmissions(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "submissions disabled"})
}

func (h *AdminHandler) RecalculateLeaderboards(c *gin.Context) {
	if err := h.admin.RecalculateLeaderboards(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leaderboards recalculated"})
}
