package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseCompleted PurchaseStatus = "COMPLETED"
	PurchaseFailed    PurchaseStatus = "FAILED"
	PurchaseRefunded  PurchaseStatus = "REFUNDED"
)

// CanTransition reports whether a purchase may move from s to next.
func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	switch s {
	case PurchasePending:
		return next == PurchaseCompleted || next == PurchaseFailed
	case PurchaseCompleted:
		return next == PurchaseRefunded
	}
	return false
}

// Purchase maps 'purchases'.
type Purchase struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	CourseID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"courseId"`
	CourseVersionID *uuid.UUID      `gorm:"type:uuid;index" json:"courseVersionId,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status          PurchaseStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	PromoCodeID     *uuid.UUID      `gorm:"type:uuid" json:"promoCodeId,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// UserVersionAccess maps 'user_version_access'. One row per (user, version);
// revoked grants keep their row with IsActive false.
type UserVersionAccess struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_version_access" json:"userId"`
	CourseVersionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_version_access" json:"courseVersionId"`
	PurchaseID      *uuid.UUID `gorm:"type:uuid;index" json:"purchaseId,omitempty"`
	GrantedAt       time.Time  `gorm:"not null" json:"grantedAt"`
	IsActive        bool       `gorm:"not null" json:"isActive"`
	RevokedAt       *time.Time `json:"revokedAt,omitempty"`
}

func (UserVersionAccess) TableName() string {
	return "user_version_access"
}

func (m *Purchase) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = PurchasePending
	}
	return
}
func (m *UserVersionAccess) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
