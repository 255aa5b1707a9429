package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wtppaul/course-catalog/internal/models"
)

// --- Filter for listing ---

type ListCoursesFilter struct {
	Status models.CourseStatus
	Page   int
	Limit  int
}

type ICourseRepository interface {
	// Catalog operations
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByID(ctx context.Context, courseID uuid.UUID) (*models.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	ListCourses(ctx context.Context, filter ListCoursesFilter) ([]*models.Course, error)
	UpdateCourseStatus(ctx context.Context, courseID uuid.UUID, newStatus models.CourseStatus) error
	IsSlugInUse(ctx context.Context, slug string) (bool, error)

	// Used by version activation and the batch jobs
	// LockCourse takes a row lock on the course for the rest of the
	// surrounding transaction. Outside a transaction it is a plain read.
	LockCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error)

	// ListVersionedCourseIDs returns ids of courses with at least minVersions versions.
	ListVersionedCourseIDs(ctx context.Context, minVersions int) ([]uuid.UUID, error)
}

type courseRepository struct {
	db *gorm.DB
}

// --- Implementation ---

func NewCourseRepository(db *gorm.DB) ICourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	return wrap("create course", r.db.WithContext(ctx).Create(course).Error)
}

func (r *courseRepository) GetCourseByID(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		return nil, wrap("get course", err)
	}
	return &course, nil
}

// GetCourseBySlug loads the course with its versions in version order.
func (r *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version ASC")
		}).
		Where("slug = ?", slug).
		First(&course).Error
	if err != nil {
		return nil, wrap("get course by slug", err)
	}
	return &course, nil
}

func (r *courseRepository) ListCourses(ctx context.Context, filter ListCoursesFilter) ([]*models.Course, error) {
	// 1. Clamp paging
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20 // default page size
	}

	// 2. Optional status filter
	q := r.db.WithContext(ctx).Model(&models.Course{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	// 3. Newest first
	var courses []*models.Course
	err := q.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&courses).Error
	return courses, wrap("list courses", err)
}

func (r *courseRepository) UpdateCourseStatus(ctx context.Context, courseID uuid.UUID, newStatus models.CourseStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return wrap("update course status", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update course status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *courseRepository) IsSlugInUse(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, wrap("check slug", err)
	}
	return count > 0, nil
}

func (r *courseRepository) LockCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&course, "id = ?", courseID).Error
	if err != nil {
		return nil, wrap("lock course", err)
	}
	return &course, nil
}

func (r *courseRepository) ListVersionedCourseIDs(ctx context.Context, minVersions int) ([]uuid.UUID, error) {
	var rows []struct {
		CourseID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&models.CourseVersion{}).
		Select("course_id").
		Group("course_id").
		Having("COUNT(*) >= ?", minVersions).
		Order("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("list versioned courses", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CourseID)
	}
	return ids, nil
}
