package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/service"
)

type VersionHandler struct {
	versions *service.VersionService
	log      *logger.Logger
}

func NewVersionHandler(versions *service.VersionService, log *logger.Logger) *VersionHandler {
	return &VersionHandler{versions: versions, log: log}
}

type versionInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateVersion (POST /internal/courses/:courseId/versions)
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	var input versionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	version, err := h.versions.CreateVersion(c.Request.Context(), courseID, input.Title, input.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, version)
}

// ListVersions (GET /internal/courses/:courseId/versions)
func (h *VersionHandler) ListVersions(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	versions, err := h.versions.ListVersions(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// GetActiveVersion (GET /internal/courses/:courseId/versions/active)
func (h *VersionHandler) GetActiveVersion(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	version, err := h.versions.GetActiveVersion(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// GetVersion (GET /internal/versions/:versionId)
func (h *VersionHandler) GetVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	version, err := h.versions.GetVersion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// UpdateVersion (PATCH /internal/versions/:versionId)
func (h *VersionHandler) UpdateVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	var input versionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	version, err := h.versions.UpdateVersion(c.Request.Context(), id, input.Title, input.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// PublishVersion (POST /internal/versions/:versionId/publish)
// Body {"activate": true} also activates the version.
func (h *VersionHandler) PublishVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	var input struct {
		Activate bool `json:"activate"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	version, err := h.versions.PublishVersion(c.Request.Context(), id, input.Activate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// ActivateVersion (POST /internal/versions/:versionId/activate)
func (h *VersionHandler) ActivateVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	version, err := h.versions.ActivateVersion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// DeactivateVersion (POST /internal/versions/:versionId/deactivate)
func (h *VersionHandler) DeactivateVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	version, err := h.versions.DeactivateVersion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// CloneVersion (POST /internal/versions/:versionId/clone)
func (h *VersionHandler) CloneVersion(c *gin.Context) {
	id, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	var input struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	version, err := h.versions.CloneVersion(c.Request.Context(), id, input.Title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, version)
}
