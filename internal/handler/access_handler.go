package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/service"
)

type AccessHandler struct {
	access   *service.AccessService
	settings *service.SettingsService
	log      *logger.Logger
}

func NewAccessHandler(access *service.AccessService, settings *service.SettingsService, log *logger.Logger) *AccessHandler {
	return &AccessHandler{access: access, settings: settings, log: log}
}

// ListUserAccess (GET /internal/users/:userId/access)
func (h *AccessHandler) ListUserAccess(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	grants, err := h.access.ListUserAccess(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// HasAccess (GET /internal/users/:userId/access/:versionId)
func (h *AccessHandler) HasAccess(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "versionId")
	if !ok {
		return
	}
	allowed, err := h.access.HasAccess(c.Request.Context(), userID, versionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "versionId": versionID, "hasAccess": allowed})
}

// GetSettings (GET /internal/settings)
func (h *AccessHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings (PUT /internal/settings)
func (h *AccessHandler) UpdateSettings(c *gin.Context) {
	var input struct {
		SiteName     string `json:"siteName" binding:"required"`
		SupportEmail string `json:"supportEmail"`
		Currency     string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	settings, err := h.settings.UpdateSettings(c.Request.Context(), models.SiteSettings{
		SiteName:     input.SiteName,
		SupportEmail: input.SupportEmail,
		Currency:     input.Currency,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
