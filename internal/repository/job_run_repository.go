package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/models"
)

type IJobRunRepository interface {
	CreateJobRun(ctx context.Context, run *models.JobRun) error
	// ListJobRuns returns the newest runs first; an empty job lists all jobs.
	ListJobRuns(ctx context.Context, job string, limit int) ([]*models.JobRun, error)
}

type jobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(db *gorm.DB) IJobRunRepository {
	return &jobRunRepository{db: db}
}

func (r *jobRunRepository) CreateJobRun(ctx context.Context, run *models.JobRun) error {
	return wrap("create job run", r.db.WithContext(ctx).Create(run).Error)
}

func (r *jobRunRepository) ListJobRuns(ctx context.Context, job string, limit int) ([]*models.JobRun, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := r.db.WithContext(ctx).Model(&models.JobRun{})
	if job != "" {
		q = q.Where("job = ?", job)
	}
	var runs []*models.JobRun
	err := q.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, wrap("list job runs", err)
}
