package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

// maxLinkHops bounds successor lookups through the chapter link graph.
const maxLinkHops = 64

type ChapterService struct {
	store *repository.Store
}

func NewChapterService(store *repository.Store) *ChapterService {
	return &ChapterService{store: store}
}

// CreateChapter appends a chapter to a version. A nil order places it last;
// an explicit order already taken fails with ErrConstraintViolation.
func (s *ChapterService) CreateChapter(ctx context.Context, versionID uuid.UUID, title string, order *int) (*models.Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if order != nil && *order < 1 {
		return nil, invalid("order must be positive")
	}

	chapter := &models.Chapter{CourseVersionID: versionID, Title: title}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Versions.GetVersionByID(ctx, versionID); err != nil {
			return err
		}
		if order != nil {
			chapter.Order = *order
		} else {
			next, err := tx.Chapters.NextOrder(ctx, versionID)
			if err != nil {
				return err
			}
			chapter.Order = next
		}
		return tx.Chapters.CreateChapter(ctx, chapter)
	})
	if err != nil {
		return nil, err
	}
	return chapter, nil
}

func (s *ChapterService) UpdateChapter(ctx context.Context, chapterID uuid.UUID, title string) (*models.Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if err := s.store.Chapters.UpdateChapterTitle(ctx, chapterID, title); err != nil {
		return nil, err
	}
	return s.store.Chapters.GetChapterByID(ctx, chapterID)
}

// ReorderChapters assigns positions 1..n following ids, which must list
// every chapter of the version exactly once.
func (s *ChapterService) ReorderChapters(ctx context.Context, versionID uuid.UUID, ids []uuid.UUID) ([]*models.Chapter, error) {
	var out []*models.Chapter
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Chapters.ListChapters(ctx, versionID)
		if err != nil {
			return err
		}
		if len(ids) != len(current) {
			return invalid("expected %d chapter ids, got %d", len(current), len(ids))
		}
		known := make(map[uuid.UUID]bool, len(current))
		for _, ch := range current {
			known[ch.ID] = true
		}
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if !known[id] || seen[id] {
				return invalid("chapter %s is unknown or repeated", id)
			}
			seen[id] = true
		}

		// Park every row on a negative position first so the unique
		// (version, position) index never sees two rows on one slot.
		for i, id := range ids {
			if err := tx.Chapters.SetOrder(ctx, id, -(i + 1)); err != nil {
				return err
			}
		}
		for i, id := range ids {
			if err := tx.Chapters.SetOrder(ctx, id, i+1); err != nil {
				return err
			}
		}
		out, err = tx.Chapters.ListChapters(ctx, versionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteChapter removes a chapter. Chapters of later versions linked to it
// lose the link and survive.
func (s *ChapterService) DeleteChapter(ctx context.Context, chapterID uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Chapters.GetChapterByID(ctx, chapterID); err != nil {
			return err
		}
		if err := tx.Chapters.ClearLinksTo(ctx, chapterID); err != nil {
			return err
		}
		return tx.Chapters.DeleteChapter(ctx, chapterID)
	})
}

// FindSuccessorChapter maps a chapter onto another version of the same
// course by following chapter links: forward to newer versions, backward
// to older ones. ErrNotFound when the chain breaks.
func (s *ChapterService) FindSuccessorChapter(ctx context.Context, chapterID, targetVersionID uuid.UUID) (*models.Chapter, error) {
	chapter, err := s.store.Chapters.GetChapterByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.CourseVersionID == targetVersionID {
		return chapter, nil
	}
	source, err := s.store.Versions.GetVersionByID(ctx, chapter.CourseVersionID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.Versions.GetVersionByID(ctx, targetVersionID)
	if err != nil {
		return nil, err
	}
	if source.CourseID != target.CourseID {
		return nil, invalid("chapter and target version belong to different courses")
	}

	if target.Version < source.Version {
		return s.walkBack(ctx, chapter, targetVersionID)
	}
	return s.walkForward(ctx, chapter, targetVersionID)
}

func (s *ChapterService) walkForward(ctx context.Context, from *models.Chapter, targetVersionID uuid.UUID) (*models.Chapter, error) {
	return descendantIn(ctx, s.store.Chapters, from.ID, targetVersionID)
}

// descendantIn does a breadth-first walk over chapters linked from fromID
// until it reaches one in targetVersionID.
func descendantIn(ctx context.Context, chapters repository.IChapterRepository, fromID, targetVersionID uuid.UUID) (*models.Chapter, error) {
	frontier := []uuid.UUID{fromID}
	visited := map[uuid.UUID]bool{fromID: true}
	for hop := 0; hop < maxLinkHops && len(frontier) > 0; hop++ {
		linked, err := chapters.ListLinkedFrom(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, ch := range linked {
			if ch.CourseVersionID == targetVersionID {
				return ch, nil
			}
			if !visited[ch.ID] {
				visited[ch.ID] = true
				frontier = append(frontier, ch.ID)
			}
		}
	}
	return nil, errors.Wrap(repository.ErrNotFound, "no successor chapter in target version")
}

func (s *ChapterService) walkBack(ctx context.Context, from *models.Chapter, targetVersionID uuid.UUID) (*models.Chapter, error) {
	current := from
	for hop := 0; hop < maxLinkHops; hop++ {
		if current.OriginalChapterID == nil {
			break
		}
		prev, err := s.store.Chapters.GetChapterByID(ctx, *current.OriginalChapterID)
		if err != nil {
			return nil, err
		}
		if prev.CourseVersionID == targetVersionID {
			return prev, nil
		}
		current = prev
	}
	return nil, errors.Wrap(repository.ErrNotFound, "no predecessor chapter in target version")
}
