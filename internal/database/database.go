package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wtppaul/course-catalog/internal/config"
	"github.com/wtppaul/course-catalog/internal/models"
)

// oneActiveVersionIndex backs the "at most one active version per course"
// rule at the storage level. Postgres and SQLite both accept it.
const oneActiveVersionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_course_versions_one_active
	ON course_versions (course_id) WHERE is_active`

// GormConfig is shared by the postgres connection and the test databases.
func GormConfig(logLevel gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(logLevel),
	}
}

// Connect opens the postgres database described by cfg and migrates it.
func Connect(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBHost == "" {
		return nil, fmt.Errorf("database configuration not set (check DATABASE_HOST etc.)")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(gormlogger.Warn))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table plus the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Course{},
		&models.CourseVersion{},
		&models.Chapter{},
		&models.PromoCode{},
		&models.Purchase{},
		&models.UserVersionAccess{},
		&models.SiteSettings{},
		&models.JobRun{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := db.Exec(oneActiveVersionIndex).Error; err != nil {
		return fmt.Errorf("create active version index: %w", err)
	}
	return nil
}
