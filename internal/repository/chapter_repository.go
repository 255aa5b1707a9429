package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/models"
)

type IChapterRepository interface {
	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	CreateChapters(ctx context.Context, chapters []*models.Chapter) error
	GetChapterByID(ctx context.Context, chapterID uuid.UUID) (*models.Chapter, error)
	ListChapters(ctx context.Context, versionID uuid.UUID) ([]*models.Chapter, error)
	NextOrder(ctx context.Context, versionID uuid.UUID) (int, error)
	UpdateChapterTitle(ctx context.Context, chapterID uuid.UUID, title string) error
	SetOrder(ctx context.Context, chapterID uuid.UUID, order int) error

	// LinkOriginal sets original_chapter_id only while it is still NULL and
	// reports whether the row changed.
	LinkOriginal(ctx context.Context, chapterID, originalID uuid.UUID) (bool, error)
	ClearLinksTo(ctx context.Context, originalID uuid.UUID) error
	// ListLinkedFrom returns every chapter whose original is one of originalIDs.
	ListLinkedFrom(ctx context.Context, originalIDs []uuid.UUID) ([]*models.Chapter, error)
	DeleteChapter(ctx context.Context, chapterID uuid.UUID) error
}

type chapterRepository struct {
	db *gorm.DB
}

func NewChapterRepository(db *gorm.DB) IChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	return wrap("create chapter", r.db.WithContext(ctx).Create(chapter).Error)
}

func (r *chapterRepository) CreateChapters(ctx context.Context, chapters []*models.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}
	return wrap("create chapters", r.db.WithContext(ctx).Create(&chapters).Error)
}

func (r *chapterRepository) GetChapterByID(ctx context.Context, chapterID uuid.UUID) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := r.db.WithContext(ctx).First(&chapter, "id = ?", chapterID).Error; err != nil {
		return nil, wrap("get chapter", err)
	}
	return &chapter, nil
}

func (r *chapterRepository) ListChapters(ctx context.Context, versionID uuid.UUID) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	err := r.db.WithContext(ctx).
		Where("course_version_id = ?", versionID).
		Order("position ASC").
		Find(&chapters).Error
	return chapters, wrap("list chapters", err)
}

func (r *chapterRepository) NextOrder(ctx context.Context, versionID uuid.UUID) (int, error) {
	var last []int
	err := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("course_version_id = ?", versionID).
		Order("position DESC").
		Limit(1).
		Pluck("position", &last).Error
	if err != nil {
		return 0, wrap("next chapter order", err)
	}
	if len(last) == 0 || last[0] < 1 {
		return 1, nil
	}
	return last[0] + 1, nil
}

func (r *chapterRepository) UpdateChapterTitle(ctx context.Context, chapterID uuid.UUID, title string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("id = ?", chapterID).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": time.Now(),
		})
	return affected("update chapter", res)
}

func (r *chapterRepository) SetOrder(ctx context.Context, chapterID uuid.UUID, order int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("id = ?", chapterID).
		Updates(map[string]interface{}{
			"position":   order,
			"updated_at": time.Now(),
		})
	return affected("set chapter order", res)
}

func (r *chapterRepository) LinkOriginal(ctx context.Context, chapterID, originalID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("id = ? AND original_chapter_id IS NULL", chapterID).
		Updates(map[string]interface{}{
			"original_chapter_id": originalID,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return false, wrap("link chapter", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *chapterRepository) ClearLinksTo(ctx context.Context, originalID uuid.UUID) error {
	return wrap("clear chapter links", r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("original_chapter_id = ?", originalID).
		Update("original_chapter_id", nil).Error)
}

func (r *chapterRepository) ListLinkedFrom(ctx context.Context, originalIDs []uuid.UUID) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	if len(originalIDs) == 0 {
		return chapters, nil
	}
	err := r.db.WithContext(ctx).
		Where("original_chapter_id IN ?", originalIDs).
		Order("position ASC").
		Find(&chapters).Error
	return chapters, wrap("list linked chapters", err)
}

func (r *chapterRepository) DeleteChapter(ctx context.Context, chapterID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Chapter{}, "id = ?", chapterID)
	return affected("delete chapter", res)
}
