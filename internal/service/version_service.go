package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wtppaul/course-catalog/internal/events"
	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

type VersionService struct {
	store   *repository.Store
	pub     events.Publisher
	log     *logger.Logger
	retries int
}

// NewVersionService builds the service. retries bounds how often a
// transaction that lost a race is re-run; pub may be nil.
func NewVersionService(store *repository.Store, pub events.Publisher, log *logger.Logger, retries int) *VersionService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &VersionService{store: store, pub: pub, log: log, retries: retries}
}

// CreateVersion appends a draft version numbered max+1. Numbering happens
// under the course row lock.
func (s *VersionService) CreateVersion(ctx context.Context, courseID uuid.UUID, title, description string) (*models.CourseVersion, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}

	var created *models.CourseVersion
	err := retry(ctx, s.retries+1, func() error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			if _, err := tx.Courses.LockCourse(ctx, courseID); err != nil {
				return err
			}
			n, err := tx.Versions.NextVersionNumber(ctx, courseID)
			if err != nil {
				return err
			}
			version := &models.CourseVersion{
				CourseID:    courseID,
				Version:     n,
				Title:       title,
				Description: description,
			}
			if err := tx.Versions.CreateVersion(ctx, version); err != nil {
				return err
			}
			created = version
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CloneVersion creates the next draft from an existing version. Copied
// chapters link to their counterpart in the version right before the new
// one: the source chapter itself when the source is the latest version,
// otherwise the latest chapter descending from it. Copies with no such
// descendant stay unlinked for the chapter linker.
func (s *VersionService) CloneVersion(ctx context.Context, sourceID uuid.UUID, title string) (*models.CourseVersion, error) {
	var clone *models.CourseVersion
	err := retry(ctx, s.retries+1, func() error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			source, err := tx.Versions.GetVersionWithChapters(ctx, sourceID)
			if err != nil {
				return err
			}
			if _, err := tx.Courses.LockCourse(ctx, source.CourseID); err != nil {
				return err
			}
			n, err := tx.Versions.NextVersionNumber(ctx, source.CourseID)
			if err != nil {
				return err
			}

			version := &models.CourseVersion{
				CourseID:    source.CourseID,
				Version:     n,
				Title:       source.Title,
				Description: source.Description,
			}
			if t := strings.TrimSpace(title); t != "" {
				version.Title = t
			}
			latest := source
			if source.Version != n-1 {
				if latest, err = tx.Versions.GetVersionByNumber(ctx, source.CourseID, n-1); err != nil {
					return err
				}
			}
			if err := tx.Versions.CreateVersion(ctx, version); err != nil {
				return err
			}

			chapters := make([]*models.Chapter, 0, len(source.Chapters))
			for i := range source.Chapters {
				src := source.Chapters[i]
				ch := &models.Chapter{
					CourseVersionID: version.ID,
					Title:           src.Title,
					Order:           src.Order,
				}
				if latest.ID == source.ID {
					ch.OriginalChapterID = &src.ID
				} else {
					prev, err := descendantIn(ctx, tx.Chapters, src.ID, latest.ID)
					switch {
					case err == nil:
						ch.OriginalChapterID = &prev.ID
					case !errors.Is(err, repository.ErrNotFound):
						return err
					}
				}
				chapters = append(chapters, ch)
			}
			if err := tx.Chapters.CreateChapters(ctx, chapters); err != nil {
				return err
			}
			for _, ch := range chapters {
				version.Chapters = append(version.Chapters, *ch)
			}
			clone = version
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

func (s *VersionService) UpdateVersion(ctx context.Context, versionID uuid.UUID, title, description string) (*models.CourseVersion, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if err := s.store.Versions.UpdateVersionDetails(ctx, versionID, title, description); err != nil {
		return nil, err
	}
	return s.store.Versions.GetVersionByID(ctx, versionID)
}

func (s *VersionService) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error) {
	return s.store.Versions.GetVersionWithChapters(ctx, versionID)
}

func (s *VersionService) ListVersions(ctx context.Context, courseID uuid.UUID) ([]*models.CourseVersion, error) {
	if _, err := s.store.Courses.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.store.Versions.ListVersions(ctx, courseID)
}

func (s *VersionService) GetActiveVersion(ctx context.Context, courseID uuid.UUID) (*models.CourseVersion, error) {
	return s.store.Versions.GetActiveVersion(ctx, courseID)
}

// PublishVersion stamps publishedAt once and, when activate is set, makes
// the version the active one in the same transaction.
func (s *VersionService) PublishVersion(ctx context.Context, versionID uuid.UUID, activate bool) (*models.CourseVersion, error) {
	var published *models.CourseVersion
	err := retry(ctx, s.retries+1, func() error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			version, err := tx.Versions.GetVersionByID(ctx, versionID)
			if err != nil {
				return err
			}
			if _, err := tx.Courses.LockCourse(ctx, version.CourseID); err != nil {
				return err
			}
			if err := tx.Versions.MarkPublished(ctx, versionID, time.Now()); err != nil {
				return err
			}
			if activate {
				if err := switchActive(ctx, tx, version); err != nil {
					return err
				}
			}
			published, err = tx.Versions.GetVersionByID(ctx, versionID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if activate {
		s.emitActivated(ctx, published)
	}
	return published, nil
}

// ActivateVersion makes a published version the only active version of its
// course. Concurrent activations of the same course serialize on the course
// row; a loser that still collides is retried.
func (s *VersionService) ActivateVersion(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error) {
	var activated *models.CourseVersion
	err := retry(ctx, s.retries+1, func() error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			version, err := tx.Versions.GetVersionByID(ctx, versionID)
			if err != nil {
				return err
			}
			if _, err := tx.Courses.LockCourse(ctx, version.CourseID); err != nil {
				return err
			}
			if !version.IsPublished() {
				return errors.Wrap(repository.ErrInvalidTransition, "only published versions can be activated")
			}
			if err := switchActive(ctx, tx, version); err != nil {
				return err
			}
			activated = version
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.emitActivated(ctx, activated)
	return activated, nil
}

// DeactivateVersion leaves the course without an active version.
func (s *VersionService) DeactivateVersion(ctx context.Context, versionID uuid.UUID) (*models.CourseVersion, error) {
	var version *models.CourseVersion
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		v, err := tx.Versions.GetVersionByID(ctx, versionID)
		if err != nil {
			return err
		}
		if _, err := tx.Courses.LockCourse(ctx, v.CourseID); err != nil {
			return err
		}
		if err := tx.Versions.SetActive(ctx, versionID, false); err != nil {
			return err
		}
		v.IsActive = false
		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func switchActive(ctx context.Context, tx *repository.Store, version *models.CourseVersion) error {
	if err := tx.Versions.ClearActive(ctx, version.CourseID); err != nil {
		return err
	}
	if err := tx.Versions.SetActive(ctx, version.ID, true); err != nil {
		return err
	}
	version.IsActive = true
	return nil
}

func (s *VersionService) emitActivated(ctx context.Context, v *models.CourseVersion) {
	s.log.Infof("version %d of course %s activated", v.Version, v.CourseID)
	events.Emit(ctx, s.pub, s.log, events.KeyVersionActivated, events.VersionActivated{
		CourseID:    v.CourseID,
		VersionID:   v.ID,
		Version:     v.Version,
		ActivatedAt: time.Now().UTC(),
	})
}
