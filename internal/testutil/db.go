// Package testutil provides throwaway SQLite databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wtppaul/course-catalog/internal/database"
	"github.com/wtppaul/course-catalog/internal/models"
)

// NewDB returns a migrated SQLite database living in t.TempDir(). It uses a
// single connection so concurrent transactions queue instead of failing
// with SQLITE_BUSY.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateCourse(t *testing.T, db *gorm.DB, title string) *models.Course {
	t.Helper()
	course := &models.Course{
		Title:    title,
		Slug:     "course-" + uuid.NewString()[:8],
		Price:    decimal.NewFromInt(100),
		Status:   models.StatusDraft,
		AuthorID: uuid.New(),
	}
	require.NoError(t, db.WithContext(context.Background()).Create(course).Error)
	return course
}

// CreateVersion adds version number n with the given chapter titles in order.
// published controls whether PublishedAt is set.
func CreateVersion(t *testing.T, db *gorm.DB, courseID uuid.UUID, n int, published bool, titles ...string) *models.CourseVersion {
	t.Helper()
	version := &models.CourseVersion{
		CourseID: courseID,
		Version:  n,
		Title:    "v" + time.Now().Format("150405.000"),
	}
	if published {
		now := time.Now()
		version.PublishedAt = &now
	}
	require.NoError(t, db.Create(version).Error)

	for i, title := range titles {
		chapter := &models.Chapter{CourseVersionID: version.ID, Title: title, Order: i + 1}
		require.NoError(t, db.Create(chapter).Error)
		version.Chapters = append(version.Chapters, *chapter)
	}
	return version
}

func CreatePurchase(t *testing.T, db *gorm.DB, userID, courseID uuid.UUID, versionID *uuid.UUID, status models.PurchaseStatus, createdAt time.Time) *models.Purchase {
	t.Helper()
	purchase := &models.Purchase{
		UserID:          userID,
		CourseID:        courseID,
		CourseVersionID: versionID,
		Amount:          decimal.NewFromInt(100),
		Status:          status,
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(purchase).Error)
	return purchase
}

// Chapters returns the chapters of a version in display order.
func Chapters(t *testing.T, db *gorm.DB, versionID uuid.UUID) []models.Chapter {
	t.Helper()
	var chapters []models.Chapter
	require.NoError(t, db.Where("course_version_id = ?", versionID).Order("position ASC").Find(&chapters).Error)
	return chapters
}
