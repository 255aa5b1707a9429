package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wtppaul/course-catalog/internal/models"
)

type IAccessRepository interface {
	GetAccess(ctx context.Context, userID, versionID uuid.UUID) (*models.UserVersionAccess, error)
	Exists(ctx context.Context, userID, versionID uuid.UUID) (bool, error)
	HasActiveAccess(ctx context.Context, userID, versionID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserVersionAccess, error)

	// InsertIfAbsent creates the grant unless a row for (user, version)
	// already exists, and reports whether it inserted.
	InsertIfAbsent(ctx context.Context, access *models.UserVersionAccess) (bool, error)
	// UpsertGrant creates the grant or reactivates the existing row, pointing
	// it at the new purchase.
	UpsertGrant(ctx context.Context, access *models.UserVersionAccess) error
	// RevokeByPurchase deactivates every active grant created by purchaseID
	// and returns the revoked rows.
	RevokeByPurchase(ctx context.Context, purchaseID uuid.UUID, at time.Time) ([]*models.UserVersionAccess, error)
}

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) IAccessRepository {
	return &accessRepository{db: db}
}

var accessConflictColumns = []clause.Column{{Name: "user_id"}, {Name: "course_version_id"}}

func (r *accessRepository) GetAccess(ctx context.Context, userID, versionID uuid.UUID) (*models.UserVersionAccess, error) {
	var access models.UserVersionAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_version_id = ?", userID, versionID).
		First(&access).Error
	if err != nil {
		return nil, wrap("get access", err)
	}
	return &access, nil
}

func (r *accessRepository) Exists(ctx context.Context, userID, versionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserVersionAccess{}).
		Where("user_id = ? AND course_version_id = ?", userID, versionID).
		Count(&count).Error
	return count > 0, wrap("check access", err)
}

func (r *accessRepository) HasActiveAccess(ctx context.Context, userID, versionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserVersionAccess{}).
		Where("user_id = ? AND course_version_id = ? AND is_active = ?", userID, versionID, true).
		Count(&count).Error
	return count > 0, wrap("check active access", err)
}

func (r *accessRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserVersionAccess, error) {
	var grants []*models.UserVersionAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("granted_at DESC").
		Find(&grants).Error
	return grants, wrap("list access", err)
}

func (r *accessRepository) InsertIfAbsent(ctx context.Context, access *models.UserVersionAccess) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: accessConflictColumns, DoNothing: true}).
		Create(access)
	if res.Error != nil {
		return false, wrap("insert access", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *accessRepository) UpsertGrant(ctx context.Context, access *models.UserVersionAccess) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: accessConflictColumns,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_active":   true,
				"revoked_at":  nil,
				"purchase_id": access.PurchaseID,
				"granted_at":  access.GrantedAt,
			}),
		}).
		Create(access).Error
	return wrap("upsert access", err)
}

func (r *accessRepository) RevokeByPurchase(ctx context.Context, purchaseID uuid.UUID, at time.Time) ([]*models.UserVersionAccess, error) {
	var grants []*models.UserVersionAccess
	err := r.db.WithContext(ctx).
		Where("purchase_id = ? AND is_active = ?", purchaseID, true).
		Find(&grants).Error
	if err != nil {
		return nil, wrap("find grants to revoke", err)
	}
	if len(grants) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ID)
		g.IsActive = false
		g.RevokedAt = &at
	}
	err = r.db.WithContext(ctx).
		Model(&models.UserVersionAccess{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_active":  false,
			"revoked_at": at,
		}).Error
	if err != nil {
		return nil, wrap("revoke grants", err)
	}
	return grants, nil
}
