package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/service"
)

type PurchaseHandler struct {
	purchases *service.PurchaseService
	log       *logger.Logger
}

func NewPurchaseHandler(purchases *service.PurchaseService, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, log: log}
}

// CreatePurchase (POST /internal/purchases)
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var input struct {
		UserID          uuid.UUID  `json:"userId" binding:"required"`
		CourseID        uuid.UUID  `json:"courseId" binding:"required"`
		CourseVersionID *uuid.UUID `json:"courseVersionId"`
		PromoCode       string     `json:"promoCode"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	purchase, err := h.purchases.CreatePurchase(c.Request.Context(), service.CreatePurchaseInput{
		UserID:          input.UserID,
		CourseID:        input.CourseID,
		CourseVersionID: input.CourseVersionID,
		PromoCode:       input.PromoCode,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

// GetPurchase (GET /internal/purchases/:purchaseId)
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	id, ok := uuidParam(c, "purchaseId")
	if !ok {
		return
	}
	purchase, err := h.purchases.GetPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// CompletePurchase (POST /internal/purchases/:purchaseId/complete)
func (h *PurchaseHandler) CompletePurchase(c *gin.Context) {
	id, ok := uuidParam(c, "purchaseId")
	if !ok {
		return
	}
	purchase, grant, err := h.purchases.CompletePurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": purchase, "access": grant})
}

// FailPurchase (POST /internal/purchases/:purchaseId/fail)
func (h *PurchaseHandler) FailPurchase(c *gin.Context) {
	id, ok := uuidParam(c, "purchaseId")
	if !ok {
		return
	}
	purchase, err := h.purchases.FailPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// RefundPurchase (POST /internal/purchases/:purchaseId/refund)
func (h *PurchaseHandler) RefundPurchase(c *gin.Context) {
	id, ok := uuidParam(c, "purchaseId")
	if !ok {
		return
	}
	purchase, revoked, err := h.purchases.RefundPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": purchase, "revoked": revoked})
}

// CreatePromoCode (POST /internal/promo-codes)
func (h *PurchaseHandler) CreatePromoCode(c *gin.Context) {
	var input struct {
		Code          string              `json:"code" binding:"required"`
		DiscountType  models.DiscountType `json:"discountType" binding:"required"`
		DiscountValue decimal.Decimal     `json:"discountValue"`
		ExpiresAt     *time.Time          `json:"expiresAt"`
		MaxUses       int                 `json:"maxUses"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	promo := &models.PromoCode{
		Code:          input.Code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		ExpiresAt:     input.ExpiresAt,
		MaxUses:       input.MaxUses,
	}
	if err := h.purchases.CreatePromoCode(c.Request.Context(), promo); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, promo)
}
