package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SiteSettingsID is the id of the only site_settings row.
const SiteSettingsID uint = 1

type SiteSettings struct {
	ID           uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	SiteName     string    `gorm:"not null" json:"siteName"`
	SupportEmail string    `json:"supportEmail"`
	Currency     string    `gorm:"type:varchar(3);not null" json:"currency"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func DefaultSiteSettings() SiteSettings {
	return SiteSettings{ID: SiteSettingsID, SiteName: "Course Catalog", Currency: "USD"}
}

// JobRun records the outcome of one maintenance job execution.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Job         string         `gorm:"type:varchar(50);not null;index" json:"job"`
	DryRun      bool           `gorm:"not null" json:"dryRun"`
	Interrupted bool           `gorm:"not null" json:"interrupted"`
	Counts      datatypes.JSON `json:"counts"`
	FailedIDs   datatypes.JSON `json:"failedIds"`
	Warnings    datatypes.JSON `json:"warnings"`
	StartedAt   time.Time      `gorm:"not null;index" json:"startedAt"`
	FinishedAt  time.Time      `gorm:"not null" json:"finishedAt"`
}

func (m *JobRun) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
