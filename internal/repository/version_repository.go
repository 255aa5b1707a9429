package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/models"
)

type IVersionRepository interface {
	CreateVersion(ctx context.Context, version *models.CourseVersion) error
	GetVersionByID(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error)
	GetVersionByNumber(ctx context.Context, courseID uuid.UUID, number int) (*models.CourseVersion, error)
	// GetVersionWithChapters preloads chapters in display order.
	GetVersionWithChapters(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error)
	ListVersions(ctx context.Context, courseID uuid.UUID) ([]*models.CourseVersion, error)
	GetActiveVersion(ctx context.Context, courseID uuid.UUID) (*models.CourseVersion, error)
	NextVersionNumber(ctx context.Context, courseID uuid.UUID) (int, error)
	UpdateVersionDetails(ctx context.Context, versionID uuid.UUID, title, description string) error
	MarkPublished(ctx context.Context, versionID uuid.UUID, at time.Time) error
	ClearActive(ctx context.Context, courseID uuid.UUID) error
	SetActive(ctx context.Context, versionID uuid.UUID, active bool) error
	CountActive(ctx context.Context, courseID uuid.UUID) (int64, error)
}

type versionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) IVersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) CreateVersion(ctx context.Context, version *models.CourseVersion) error {
	return wrap("create version", r.db.WithContext(ctx).Create(version).Error)
}

func (r *versionRepository) GetVersionByID(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error) {
	var version models.CourseVersion
	if err := r.db.WithContext(ctx).First(&version, "id = ?", versionID).Error; err != nil {
		return nil, wrap("get version", err)
	}
	return &version, nil
}

func (r *versionRepository) GetVersionByNumber(ctx context.Context, courseID uuid.UUID, number int) (*models.CourseVersion, error) {
	var version models.CourseVersion
	err := r.db.WithContext(ctx).
		First(&version, "course_id = ? AND version = ?", courseID, number).Error
	if err != nil {
		return nil, wrap("get version by number", err)
	}
	return &version, nil
}

func (r *versionRepository) GetVersionWithChapters(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error) {
	var version models.CourseVersion
	err := r.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&version, "id = ?", versionID).Error
	if err != nil {
		return nil, wrap("get version with chapters", err)
	}
	return &version, nil
}

func (r *versionRepository) ListVersions(ctx context.Context, courseID uuid.UUID) ([]*models.CourseVersion, error) {
	var versions []*models.CourseVersion
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("version ASC").
		Find(&versions).Error
	return versions, wrap("list versions", err)
}

func (r *versionRepository) GetActiveVersion(ctx context.Context, courseID uuid.UUID) (*models.CourseVersion, error) {
	var version models.CourseVersion
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND is_active = ?", courseID, true).
		First(&version).Error
	if err != nil {
		return nil, wrap("get active version", err)
	}
	return &version, nil
}

func (r *versionRepository) NextVersionNumber(ctx context.Context, courseID uuid.UUID) (int, error) {
	var last []int
	err := r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("course_id = ?", courseID).
		Order("version DESC").
		Limit(1).
		Pluck("version", &last).Error
	if err != nil {
		return 0, wrap("next version number", err)
	}
	if len(last) == 0 {
		return 1, nil
	}
	return last[0] + 1, nil
}

func (r *versionRepository) UpdateVersionDetails(ctx context.Context, versionID uuid.UUID, title, description string) error {
	res := r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("id = ?", versionID).
		Updates(map[string]interface{}{
			"title":       title,
			"description": description,
			"updated_at":  time.Now(),
		})
	return affected("update version", res)
}

// MarkPublished sets published_at once; already published versions keep
// their original timestamp.
func (r *versionRepository) MarkPublished(ctx context.Context, versionID uuid.UUID, at time.Time) error {
	return wrap("publish version", r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("id = ? AND published_at IS NULL", versionID).
		Updates(map[string]interface{}{
			"published_at": at,
			"updated_at":   at,
		}).Error)
}

func (r *versionRepository) ClearActive(ctx context.Context, courseID uuid.UUID) error {
	return wrap("clear active versions", r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error)
}

func (r *versionRepository) SetActive(ctx context.Context, versionID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("id = ?", versionID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	return affected("set version active", res)
}

func (r *versionRepository) CountActive(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Count(&count).Error
	return count, wrap("count active versions", err)
}

// affected turns a zero-row update into ErrNotFound.
func affected(op string, res *gorm.DB) error {
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, gorm.ErrRecordNotFound)
	}
	return nil
}
