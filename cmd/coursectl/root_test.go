package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/testutil"
)

func testOpener(db *gorm.DB) Opener {
	return func(context.Context, string) (*jobs.Runner, Defaults, func(), error) {
		runner := jobs.NewRunner(repository.NewStore(db), nil, nil, nil)
		return runner, Defaults{TieBreak: "skip", BatchSize: 100}, func() {}, nil
	}
}

func execute(t *testing.T, db *gorm.DB, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runWithOutput(context.Background(), args, testOpener(db), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLinkChaptersCommand(t *testing.T) {
	db := testutil.NewDB(t)
	course := testutil.CreateCourse(t, db, "X")
	testutil.CreateVersion(t, db, course.ID, 1, true, "Intro", "Basics")
	v2 := testutil.CreateVersion(t, db, course.ID, 2, true, "Intro!", "Basics", "Advanced")

	code, out, _ := execute(t, db, "link-chapters", "--dry-run")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "would link 2 chapter(s)")
	for _, ch := range testutil.Chapters(t, db, v2.ID) {
		assert.Nil(t, ch.OriginalChapterID)
	}

	code, out, _ = execute(t, db, "link-chapters", "--course", course.ID.String())
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "1 course(s) processed, linked 2 chapter(s) in total")

	code, out, _ = execute(t, db, "link-chapters")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "linked 0 chapter(s) in total, 2 already linked")
}

func TestLinkChaptersCommandErrors(t *testing.T) {
	db := testutil.NewDB(t)

	code, _, errOut := execute(t, db, "link-chapters", "--course", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid --course")

	code, _, errOut = execute(t, db, "link-chapters", "--tie-break", "first-wins")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "tie-break")

	code, _, _ = execute(t, db, "link-chapters", "--course", uuid.NewString())
	assert.Equal(t, 1, code)

	code, _, _ = execute(t, db, "no-such-command")
	assert.Equal(t, 1, code)
}

func TestLinkChaptersCommandFailsOnItemFailure(t *testing.T) {
	db := testutil.NewDB(t)
	course := testutil.CreateCourse(t, db, "X")
	testutil.CreateVersion(t, db, course.ID, 1, true, "Intro")
	testutil.CreateVersion(t, db, course.ID, 2, true, "Intro")
	require.NoError(t, db.Exec(`CREATE TRIGGER reject_all BEFORE UPDATE OF original_chapter_id ON chapters
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error)

	code, out, errOut := execute(t, db, "link-chapters")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "failed: chapter")
	assert.Contains(t, errOut, "1 item(s) failed")
}

func TestMigrateAccessCommand(t *testing.T) {
	db := testutil.NewDB(t)
	course := testutil.CreateCourse(t, db, "X")
	v1 := testutil.CreateVersion(t, db, course.ID, 1, true)
	testutil.CreatePurchase(t, db, uuid.New(), course.ID, &v1.ID, models.PurchaseCompleted, time.Now().UTC())

	code, out, _ := execute(t, db, "migrate-access", "--batch-size", "10")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "1 purchase(s) scanned, created 1 grant(s), 0 skipped, 0 failed")

	code, out, _ = execute(t, db, "migrate-access")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "created 0 grant(s), 1 skipped")

	code, _, _ = execute(t, db, "migrate-access", "--batch-size", "0")
	assert.Equal(t, 1, code)
}

func TestOpenerFailureExitsNonZero(t *testing.T) {
	failing := func(context.Context, string) (*jobs.Runner, Defaults, func(), error) {
		return nil, Defaults{}, nil, fmt.Errorf("database configuration not set")
	}
	var stdout, stderr bytes.Buffer
	code := runWithOutput(context.Background(), []string{"migrate-access"}, failing, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "database configuration not set")
}
