package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/service"
)

type ChapterHandler struct {
	chapters *service.ChapterService
	log      *logger.Logger
}

func NewChapterHandler(chapters *service.ChapterService, log *logger.Logger) *ChapterHandler {
	return &ChapterHandler{chapters: chapters, log: log}
}

// CreateChapter (POST /internal/versions/:versionId/chapters)
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	versionID, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	var input struct {
		Title string `json:"title" binding:"required"`
		Order *int   `json:"order"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	chapter, err := h.chapters.CreateChapter(c.Request.Context(), versionID, input.Title, input.Order)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// ReorderChapters (POST /internal/versions/:versionId/chapters/reorder)
func (h *ChapterHandler) ReorderChapters(c *gin.Context) {
	versionID, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	var input struct {
		ChapterIDs []uuid.UUID `json:"chapterIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	chapters, err := h.chapters.ReorderChapters(c.Request.Context(), versionID, input.ChapterIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// UpdateChapter (PATCH /internal/chapters/:chapterId)
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	id, ok := uuidParam(c, "chapterId")
	if !ok {
		return
	}
	var input struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	chapter, err := h.chapters.UpdateChapter(c.Request.Context(), id, input.Title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// DeleteChapter (DELETE /internal/chapters/:chapterId)
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	id, ok := uuidParam(c, "chapterId")
	if !ok {
		return
	}
	if err := h.chapters.DeleteChapter(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FindSuccessor (GET /internal/chapters/:chapterId/successor?versionId=)
func (h *ChapterHandler) FindSuccessor(c *gin.Context) {
	id, ok := uuidParam(c, "chapterId")
	if !ok {
		return
	}
	target, err := uuid.Parse(c.Query("versionId"))
	if err != nil {
		badRequest(c, "Invalid versionId format")
		return
	}
	chapter, err := h.chapters.FindSuccessorChapter(c.Request.Context(), id, target)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}
