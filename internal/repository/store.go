package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one *gorm.DB, which may be a
// transaction.
type Store struct {
	db *gorm.DB

	Courses   ICourseRepository
	Versions  IVersionRepository
	Chapters  IChapterRepository
	Purchases IPurchaseRepository
	Access    IAccessRepository
	Settings  ISettingsRepository
	JobRuns   IJobRunRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Courses:   NewCourseRepository(db),
		Versions:  NewVersionRepository(db),
		Chapters:  NewChapterRepository(db),
		Purchases: NewPurchaseRepository(db),
		Access:    NewAccessRepository(db),
		Settings:  NewSettingsRepository(db),
		JobRuns:   NewJobRunRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	return wrap("transaction", err)
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}
