package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wtppaul/course-catalog/internal/models"
)

type ISettingsRepository interface {
	// GetSettings returns the singleton row, creating it with defaults first
	// if it does not exist yet.
	GetSettings(ctx context.Context) (*models.SiteSettings, error)
	UpdateSettings(ctx context.Context, settings *models.SiteSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) ISettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	def := models.DefaultSiteSettings()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&def).Error
	if err != nil {
		return nil, wrap("seed settings", err)
	}

	var settings models.SiteSettings
	if err := r.db.WithContext(ctx).First(&settings, "id = ?", models.SiteSettingsID).Error; err != nil {
		return nil, wrap("get settings", err)
	}
	return &settings, nil
}

func (r *settingsRepository) UpdateSettings(ctx context.Context, settings *models.SiteSettings) error {
	settings.ID = models.SiteSettingsID
	settings.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"site_name", "support_email", "currency", "updated_at"}),
		}).
		Create(settings).Error
	return wrap("update settings", err)
}
