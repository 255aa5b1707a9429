package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

// TieBreak decides what happens when several predecessor chapters share a
// normalized title.
type TieBreak string

const (
	// TieBreakSkip leaves chapters with an ambiguous title unlinked.
	TieBreakSkip TieBreak = "skip"
	// TieBreakLastWins links to the last candidate in display order.
	TieBreakLastWins TieBreak = "last-wins"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakSkip:
		return TieBreakSkip, nil
	case TieBreakLastWins:
		return TieBreakLastWins, nil
	}
	return "", fmt.Errorf("unknown tie-break policy %q (want skip or last-wins)", s)
}

type LinkOptions struct {
	// CourseID limits the run to one course; nil walks the whole catalog.
	CourseID *uuid.UUID
	DryRun   bool
	TieBreak TieBreak
}

// ChapterLinker links each chapter to the same-titled chapter of the
// version right before it. Existing links are never touched, so reruns
// only fill gaps.
type ChapterLinker struct {
	store *repository.Store
	log   *logger.Logger
}

func NewChapterLinker(store *repository.Store, log *logger.Logger) *ChapterLinker {
	return &ChapterLinker{store: store, log: log}
}

var errStop = errors.New("stop")

func (l *ChapterLinker) Run(ctx context.Context, opts LinkOptions) (*LinkReport, error) {
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakSkip
	}
	report := &LinkReport{DryRun: opts.DryRun}
	if ctx.Err() != nil {
		report.Interrupted = true
		return report, report.Err()
	}

	var courseIDs []uuid.UUID
	if opts.CourseID != nil {
		if _, err := l.store.Courses.GetCourseByID(ctx, *opts.CourseID); err != nil {
			return report, err
		}
		courseIDs = []uuid.UUID{*opts.CourseID}
	} else {
		ids, err := l.store.Courses.ListVersionedCourseIDs(ctx, 2)
		if err != nil {
			return report, err
		}
		courseIDs = ids
	}

	for _, id := range courseIDs {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		err := l.linkCourse(ctx, id, opts, report)
		if errors.Is(err, errStop) || (err != nil && ctx.Err() != nil) {
			report.Interrupted = true
			break
		}
		if err != nil {
			l.log.Errorf(err, "link chapters of course %s", id)
			report.fail(id, err)
		}
	}

	l.log.Infof("link-chapters: %d course(s), %d linked, %d warning(s), %d failed",
		report.CoursesProcessed, report.TotalLinked, len(report.Warnings), len(report.Failures))
	return report, report.Err()
}

func (l *ChapterLinker) linkCourse(ctx context.Context, courseID uuid.UUID, opts LinkOptions, report *LinkReport) error {
	versions, err := l.store.Versions.ListVersions(ctx, courseID)
	if err != nil {
		return err
	}
	if len(versions) < 2 {
		return nil
	}
	report.CoursesProcessed++

	prev, err := l.store.Chapters.ListChapters(ctx, versions[0].ID)
	if err != nil {
		return err
	}
	for _, version := range versions[1:] {
		chapters, err := l.store.Chapters.ListChapters(ctx, version.ID)
		if err != nil {
			return err
		}
		lookup, ambiguous := buildLookup(prev, opts.TieBreak)
		for _, key := range sortedKeys(ambiguous) {
			w := Warning{CourseID: courseID, VersionID: version.ID, Version: version.Version, Key: key, Candidates: ambiguous[key]}
			l.log.Warnf("ambiguous chapter title: %s", w)
			report.Warnings = append(report.Warnings, w)
		}

		linked, err := l.linkVersion(ctx, chapters, lookup, ambiguous, opts, report)
		report.Versions = append(report.Versions, VersionLinks{
			CourseID:  courseID,
			VersionID: version.ID,
			Version:   version.Version,
			Linked:    linked,
		})
		report.TotalLinked += linked
		if err != nil {
			return err
		}
		prev = chapters
	}
	return nil
}

func (l *ChapterLinker) linkVersion(ctx context.Context, chapters []*models.Chapter, lookup map[string]uuid.UUID, ambiguous map[string][]uuid.UUID, opts LinkOptions, report *LinkReport) (int, error) {
	linked := 0
	for _, ch := range chapters {
		if ch.OriginalChapterID != nil {
			report.AlreadyLinked++
			continue
		}
		key := NormalizeTitle(ch.Title)
		target, ok := lookup[key]
		if key == "" || !ok {
			if _, amb := ambiguous[key]; amb && key != "" {
				report.SkippedAmbiguous++
			} else {
				report.Unmatched++
			}
			continue
		}
		if ctx.Err() != nil {
			return linked, errStop
		}
		if opts.DryRun {
			linked++
			continue
		}

		changed, err := l.store.Chapters.LinkOriginal(ctx, ch.ID, target)
		if err != nil {
			if ctx.Err() != nil {
				return linked, errStop
			}
			l.log.Errorf(err, "link chapter %s", ch.ID)
			report.fail(ch.ID, err)
			continue
		}
		if !changed {
			report.AlreadyLinked++
			continue
		}
		ch.OriginalChapterID = &target
		linked++
	}
	return linked, nil
}

// buildLookup maps normalized titles of chapters (in display order) to
// their ids. Keys shared by several chapters are returned in ambiguous and
// only kept in the lookup under TieBreakLastWins.
func buildLookup(chapters []*models.Chapter, policy TieBreak) (map[string]uuid.UUID, map[string][]uuid.UUID) {
	candidates := make(map[string][]uuid.UUID, len(chapters))
	for _, ch := range chapters {
		key := NormalizeTitle(ch.Title)
		if key == "" {
			continue
		}
		candidates[key] = append(candidates[key], ch.ID)
	}

	lookup := make(map[string]uuid.UUID, len(candidates))
	ambiguous := map[string][]uuid.UUID{}
	for key, ids := range candidates {
		if len(ids) > 1 {
			ambiguous[key] = ids
			if policy == TieBreakLastWins {
				lookup[key] = ids[len(ids)-1]
			}
			continue
		}
		lookup[key] = ids[0]
	}
	return lookup, ambiguous
}
