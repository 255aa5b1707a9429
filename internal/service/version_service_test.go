package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wtppaul/course-catalog/internal/events"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/testutil"
)

func TestCreateVersionNumbersSequentially(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewVersionService(repository.NewStore(db), nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	ctx := context.Background()

	v1, err := svc.CreateVersion(ctx, course.ID, "First", "")
	require.NoError(t, err)
	v2, err := svc.CreateVersion(ctx, course.ID, "Second", "more")
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)
	assert.False(t, v2.IsPublished())
	assert.False(t, v2.IsActive)

	_, err = svc.CreateVersion(ctx, course.ID, "  ", "")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestActivateRequiresPublishedVersion(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewVersionService(repository.NewStore(db), nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	draft := testutil.CreateVersion(t, db, course.ID, 1, false)

	_, err := svc.ActivateVersion(context.Background(), draft.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestActivateSwitchesActiveVersion(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &events.Recorder{}
	store := repository.NewStore(db)
	svc := NewVersionService(store, rec, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, true)
	v2 := testutil.CreateVersion(t, db, course.ID, 2, true)
	ctx := context.Background()

	_, err := svc.ActivateVersion(ctx, v1.ID)
	require.NoError(t, err)
	activated, err := svc.ActivateVersion(ctx, v2.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	active, err := svc.GetActiveVersion(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)
	assert.Equal(t, []string{events.KeyVersionActivated, events.KeyVersionActivated}, rec.Keys())

	_, err = svc.DeactivateVersion(ctx, v2.ID)
	require.NoError(t, err)
	_, err = svc.GetActiveVersion(ctx, course.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// The test pool has a single connection, so these activations interleave
// but never overlap inside the database. Overlapping writers are stopped by
// idx_course_versions_one_active, see TestOnlyOneActiveVersionPerCourse.
func TestInterleavedActivationsKeepOneActive(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	svc := NewVersionService(store, nil, nil, 5)
	course := testutil.CreateCourse(t, db, "Go")

	var versions []*models.CourseVersion
	for i := 1; i <= 4; i++ {
		versions = append(versions, testutil.CreateVersion(t, db, course.ID, i, true))
	}

	g, ctx := errgroup.WithContext(context.Background())
	for round := 0; round < 5; round++ {
		for _, v := range versions {
			id := v.ID
			g.Go(func() error {
				_, err := svc.ActivateVersion(ctx, id)
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	n, err := store.Versions.CountActive(context.Background(), course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPublishVersion(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewVersionService(repository.NewStore(db), nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, true)
	v2 := testutil.CreateVersion(t, db, course.ID, 2, false)
	ctx := context.Background()

	_, err := svc.ActivateVersion(ctx, v1.ID)
	require.NoError(t, err)

	published, err := svc.PublishVersion(ctx, v2.ID, false)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	assert.False(t, published.IsActive)
	first := *published.PublishedAt

	published, err = svc.PublishVersion(ctx, v2.ID, true)
	require.NoError(t, err)
	assert.True(t, published.IsActive)
	assert.True(t, first.Equal(*published.PublishedAt))

	active, err := svc.GetActiveVersion(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)
}

func TestCloneVersionLinksChapters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewVersionService(repository.NewStore(db), nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, true, "Intro", "Basics")

	clone, err := svc.CloneVersion(context.Background(), v1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, clone.Version)
	assert.Equal(t, v1.Title, clone.Title)
	assert.Nil(t, clone.PublishedAt)

	chapters := testutil.Chapters(t, db, clone.ID)
	require.Len(t, chapters, 2)
	for i, ch := range chapters {
		assert.Equal(t, v1.Chapters[i].Title, ch.Title)
		assert.Equal(t, v1.Chapters[i].Order, ch.Order)
		require.NotNil(t, ch.OriginalChapterID)
		assert.Equal(t, v1.Chapters[i].ID, *ch.OriginalChapterID)
	}
}

func TestCloneOlderVersionLinksToLatest(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	svc := NewVersionService(store, nil, nil, 3)
	chapters := NewChapterService(store)
	course := testutil.CreateCourse(t, db, "Go")
	ctx := context.Background()

	v1 := testutil.CreateVersion(t, db, course.ID, 1, true, "Intro", "Basics")
	v2, err := svc.CloneVersion(ctx, v1.ID, "")
	require.NoError(t, err)
	require.NoError(t, chapters.DeleteChapter(ctx, v2.Chapters[1].ID))

	v3, err := svc.CloneVersion(ctx, v1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version)

	got := testutil.Chapters(t, db, v3.ID)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].OriginalChapterID)
	assert.Equal(t, v2.Chapters[0].ID, *got[0].OriginalChapterID)
	assert.Nil(t, got[1].OriginalChapterID)

	next, err := chapters.FindSuccessorChapter(ctx, v2.Chapters[0].ID, v3.ID)
	require.NoError(t, err)
	assert.Equal(t, got[0].ID, next.ID)

	prev, err := chapters.FindSuccessorChapter(ctx, got[0].ID, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.Chapters[0].ID, prev.ID)

	prev, err = chapters.FindSuccessorChapter(ctx, got[0].ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.Chapters[0].ID, prev.ID)
}

func TestUpdateVersion(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewVersionService(repository.NewStore(db), nil, nil, 3)
	course := testutil.CreateCourse(t, db, "Go")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, false)

	updated, err := svc.UpdateVersion(context.Background(), v1.ID, "Renamed", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "desc", updated.Description)
}
