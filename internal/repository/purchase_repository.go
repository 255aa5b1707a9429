package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wtppaul/course-catalog/internal/models"
)

type IPurchaseRepository interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	GetPurchaseByID(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error)
	LockPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error)
	// UpdatePurchaseStatus moves a purchase from one status to another and
	// fails with ErrInvalidTransition when the row is no longer in from.
	UpdatePurchaseStatus(ctx context.Context, purchaseID uuid.UUID, from, to models.PurchaseStatus) error
	// ListCompletedVersionPurchases pages through COMPLETED purchases that
	// target a specific version, oldest first.
	ListCompletedVersionPurchases(ctx context.Context, offset, limit int) ([]*models.Purchase, error)

	CreatePromoCode(ctx context.Context, promo *models.PromoCode) error
	GetPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementPromoUsage(ctx context.Context, promoID uuid.UUID) error
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) IPurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return wrap("create purchase", r.db.WithContext(ctx).Create(purchase).Error)
}

func (r *purchaseRepository) GetPurchaseByID(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", purchaseID).Error; err != nil {
		return nil, wrap("get purchase", err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) LockPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&purchase, "id = ?", purchaseID).Error
	if err != nil {
		return nil, wrap("lock purchase", err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) UpdatePurchaseStatus(ctx context.Context, purchaseID uuid.UUID, from, to models.PurchaseStatus) error {
	if !from.CanTransition(to) {
		return ErrInvalidTransition
	}
	res := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return wrap("update purchase status", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *purchaseRepository) ListCompletedVersionPurchases(ctx context.Context, offset, limit int) ([]*models.Purchase, error) {
	var purchases []*models.Purchase
	err := r.db.WithContext(ctx).
		Where("status = ? AND course_version_id IS NOT NULL", models.PurchaseCompleted).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&purchases).Error
	return purchases, wrap("list completed purchases", err)
}

func (r *purchaseRepository) CreatePromoCode(ctx context.Context, promo *models.PromoCode) error {
	return wrap("create promo code", r.db.WithContext(ctx).Create(promo).Error)
}

func (r *purchaseRepository) GetPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ?", models.NormalizePromoCode(code)).
		First(&promo).Error
	if err != nil {
		return nil, wrap("get promo code", err)
	}
	return &promo, nil
}

// IncrementPromoUsage fails with ErrConstraintViolation once MaxUses is reached.
func (r *purchaseRepository) IncrementPromoUsage(ctx context.Context, promoID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", promoID).
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return wrap("increment promo usage", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConstraintViolation
	}
	return nil
}
