package jobs

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

// lockTTL is how long a job lock survives a crashed holder; a live holder
// keeps refreshing it until release.
const lockTTL = 30 * time.Minute

// Runner wraps both jobs with the job lock and records every run in
// job_runs. The CLI, the HTTP API and the scheduler all go through it.
type Runner struct {
	store    *repository.Store
	locker   Locker
	log      *logger.Logger
	linker   *ChapterLinker
	migrator *AccessMigrator
}

// NewRunner builds a runner. A nil locker falls back to an in-process lock.
func NewRunner(store *repository.Store, locker Locker, log *logger.Logger, onGrant GrantHook) *Runner {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Runner{
		store:    store,
		locker:   locker,
		log:      log,
		linker:   NewChapterLinker(store, log),
		migrator: NewAccessMigrator(store, log, onGrant),
	}
}

func (r *Runner) LinkChapters(ctx context.Context, opts LinkOptions) (*LinkReport, error) {
	release, err := r.locker.Acquire(ctx, JobLinkChapters, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	report, runErr := r.linker.Run(ctx, opts)
	r.record(ctx, &models.JobRun{
		Job:         JobLinkChapters,
		DryRun:      opts.DryRun,
		Interrupted: report.Interrupted,
		Counts:      jsonOf(report.Counts()),
		FailedIDs:   jsonOf(report.Failures),
		Warnings:    jsonOf(report.Warnings),
		StartedAt:   started,
	})
	return report, runErr
}

func (r *Runner) MigrateAccess(ctx context.Context, opts MigrateOptions) (*MigrationReport, error) {
	release, err := r.locker.Acquire(ctx, JobMigrateAccess, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	report, runErr := r.migrator.Run(ctx, opts)
	r.record(ctx, &models.JobRun{
		Job:         JobMigrateAccess,
		DryRun:      opts.DryRun,
		Interrupted: report.Interrupted,
		Counts:      jsonOf(report.Counts()),
		FailedIDs:   jsonOf(report.Failures),
		Warnings:    jsonOf([]Warning{}),
		StartedAt:   started,
	})
	return report, runErr
}

// Runs lists recent job runs, newest first.
func (r *Runner) Runs(ctx context.Context, job string, limit int) ([]*models.JobRun, error) {
	return r.store.JobRuns.ListJobRuns(ctx, job, limit)
}

// record persists the run even when ctx was cancelled mid-run.
func (r *Runner) record(ctx context.Context, run *models.JobRun) {
	run.FinishedAt = time.Now()
	if err := r.store.JobRuns.CreateJobRun(context.WithoutCancel(ctx), run); err != nil {
		r.log.Errorf(err, "record %s run", run.Job)
	}
}

func jsonOf(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
