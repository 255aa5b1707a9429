package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/testutil"
)

func TestRunnerRecordsRuns(t *testing.T) {
	db := testutil.NewDB(t)
	runner := NewRunner(repository.NewStore(db), nil, nil, nil)
	course := testutil.CreateCourse(t, db, "X")
	testutil.CreateVersion(t, db, course.ID, 1, true, "Intro")
	v2 := testutil.CreateVersion(t, db, course.ID, 2, true, "Intro")
	testutil.CreatePurchase(t, db, uuid.New(), course.ID, &v2.ID, models.PurchaseCompleted, time.Now().UTC())
	ctx := context.Background()

	_, err := runner.LinkChapters(ctx, LinkOptions{})
	require.NoError(t, err)
	_, err = runner.MigrateAccess(ctx, MigrateOptions{DryRun: true})
	require.NoError(t, err)

	runs, err := runner.Runs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	linkRuns, err := runner.Runs(ctx, JobLinkChapters, 10)
	require.NoError(t, err)
	require.Len(t, linkRuns, 1)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(linkRuns[0].Counts, &counts))
	assert.Equal(t, 1, counts["totalLinked"])
	assert.False(t, linkRuns[0].DryRun)

	migrateRuns, err := runner.Runs(ctx, JobMigrateAccess, 10)
	require.NoError(t, err)
	require.Len(t, migrateRuns, 1)
	assert.True(t, migrateRuns[0].DryRun)
}

func TestRunnerRefusesConcurrentRun(t *testing.T) {
	db := testutil.NewDB(t)
	locker := NewLocalLocker()
	runner := NewRunner(repository.NewStore(db), locker, nil, nil)

	release, err := locker.Acquire(context.Background(), JobMigrateAccess, time.Minute)
	require.NoError(t, err)

	_, err = runner.MigrateAccess(context.Background(), MigrateOptions{})
	assert.ErrorIs(t, err, ErrJobRunning)

	_, err = runner.LinkChapters(context.Background(), LinkOptions{})
	assert.NoError(t, err)

	release()
	_, err = runner.MigrateAccess(context.Background(), MigrateOptions{})
	assert.NoError(t, err)
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Acquire(context.Background(), "job", time.Minute)
	require.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(context.Background(), "job", time.Minute)
	require.NoError(t, err)
	_, err = locker.Acquire(context.Background(), "job", time.Minute)
	assert.ErrorIs(t, err, ErrJobRunning)
	again()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("not a cron", nil, LinkOptions{}, MigrateOptions{}, nil)
	assert.Error(t, err)
}

func TestSchedulerRunOnce(t *testing.T) {
	db := testutil.NewDB(t)
	runner := NewRunner(repository.NewStore(db), nil, nil, nil)
	sched, err := NewScheduler("@daily", runner, LinkOptions{}, MigrateOptions{}, nil)
	require.NoError(t, err)

	sched.RunOnce()
	runs, err := runner.Runs(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
