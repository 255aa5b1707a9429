package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/utils"
)

type CreateCourseInput struct {
	Title      string
	Price      decimal.Decimal
	CategoryID *uuid.UUID
	AuthorID   uuid.UUID
}

type CourseService struct {
	store *repository.Store
}

func NewCourseService(store *repository.Store) *CourseService {
	return &CourseService{store: store}
}

func (s *CourseService) CreateCourse(ctx context.Context, in CreateCourseInput) (*models.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if in.AuthorID == uuid.Nil {
		return nil, invalid("authorId is required")
	}

	slug, err := utils.GenerateUniqueSlug(ctx, title, s.store.Courses)
	if err != nil {
		return nil, err
	}
	course := &models.Course{
		Title:      title,
		Slug:       slug,
		Price:      in.Price.Round(2),
		Status:     models.StatusDraft,
		CategoryID: in.CategoryID,
		AuthorID:   in.AuthorID,
	}
	if err := s.store.Courses.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.store.Courses.GetCourseByID(ctx, id)
}

func (s *CourseService) GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	return s.store.Courses.GetCourseBySlug(ctx, slug)
}

func (s *CourseService) ListCourses(ctx context.Context, filter repository.ListCoursesFilter) ([]*models.Course, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown status %q", filter.Status)
	}
	return s.store.Courses.ListCourses(ctx, filter)
}

func (s *CourseService) UpdateCourseStatus(ctx context.Context, id uuid.UUID, status models.CourseStatus) error {
	if !status.Valid() {
		return invalid("unknown status %q", status)
	}
	return s.store.Courses.UpdateCourseStatus(ctx, id, status)
}
