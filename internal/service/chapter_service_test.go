package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/testutil"
)

func TestCreateChapterOrdering(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewChapterService(repository.NewStore(db))
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, false, "Intro")
	ctx := context.Background()

	ch, err := svc.CreateChapter(ctx, v1.ID, "Basics", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ch.Order)

	five := 5
	ch, err = svc.CreateChapter(ctx, v1.ID, "Later", &five)
	require.NoError(t, err)
	assert.Equal(t, 5, ch.Order)

	one := 1
	_, err = svc.CreateChapter(ctx, v1.ID, "Clash", &one)
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)

	_, err = svc.CreateChapter(ctx, uuid.New(), "Orphan", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.CreateChapter(ctx, v1.ID, "", nil)
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestReorderChapters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewChapterService(repository.NewStore(db))
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, false, "A", "B", "C")
	a, b, c := v1.Chapters[0].ID, v1.Chapters[1].ID, v1.Chapters[2].ID
	ctx := context.Background()

	out, err := svc.ReorderChapters(ctx, v1.ID, []uuid.UUID{c, a, b})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{out[0].Title, out[1].Title, out[2].Title})
	assert.Equal(t, []int{1, 2, 3}, []int{out[0].Order, out[1].Order, out[2].Order})

	_, err = svc.ReorderChapters(ctx, v1.ID, []uuid.UUID{a, a, b})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = svc.ReorderChapters(ctx, v1.ID, []uuid.UUID{a, b})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestDeleteChapterKeepsLinkedSuccessors(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewChapterService(repository.NewStore(db))
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, true, "Intro")
	v2 := testutil.CreateVersion(t, db, course.ID, 2, true, "Intro")
	original := v1.Chapters[0].ID
	require.NoError(t, db.Model(&models.Chapter{}).Where("id = ?", v2.Chapters[0].ID).Update("original_chapter_id", original).Error)

	require.NoError(t, svc.DeleteChapter(context.Background(), original))

	remaining := testutil.Chapters(t, db, v2.ID)
	require.Len(t, remaining, 1)
	assert.Nil(t, remaining[0].OriginalChapterID)
	assert.Empty(t, testutil.Chapters(t, db, v1.ID))

	assert.ErrorIs(t, svc.DeleteChapter(context.Background(), original), repository.ErrNotFound)
}

func TestFindSuccessorChapter(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	svc := NewChapterService(store)
	versions := NewVersionService(store, nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	ctx := context.Background()

	v1 := testutil.CreateVersion(t, db, course.ID, 1, true, "Intro", "Basics")
	v2, err := versions.CloneVersion(ctx, v1.ID, "")
	require.NoError(t, err)
	v3, err := versions.CloneVersion(ctx, v2.ID, "")
	require.NoError(t, err)
	fresh := testutil.CreateVersion(t, db, course.ID, 4, false, "Other")

	basics := v1.Chapters[1].ID
	got, err := svc.FindSuccessorChapter(ctx, basics, v3.ID)
	require.NoError(t, err)
	assert.Equal(t, v3.Chapters[1].ID, got.ID)

	got, err = svc.FindSuccessorChapter(ctx, v3.Chapters[0].ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.Chapters[0].ID, got.ID)

	got, err = svc.FindSuccessorChapter(ctx, basics, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, basics, got.ID)

	_, err = svc.FindSuccessorChapter(ctx, basics, fresh.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	otherCourse := testutil.CreateCourse(t, db, "Rust")
	other := testutil.CreateVersion(t, db, otherCourse.ID, 1, false)
	_, err = svc.FindSuccessorChapter(ctx, basics, other.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}
