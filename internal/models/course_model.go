package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseStatus string
type DiscountType string

const (
	StatusDraft     CourseStatus = "DRAFT"
	StatusPublished CourseStatus = "PUBLISHED"
	StatusArchived  CourseStatus = "ARCHIVED"

	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Course maps the 'courses' table.
type Course struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string          `gorm:"not null" json:"title"`
	Slug       string          `gorm:"uniqueIndex;not null" json:"slug"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Status     CourseStatus    `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	AuthorID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"authorId"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`

	Versions []CourseVersion `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
}

// CourseVersion maps 'course_versions'. PublishedAt == nil means draft.
// At most one version per course has IsActive set.
type CourseVersion struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_course_version_number" json:"courseId"`
	Version     int        `gorm:"not null;uniqueIndex:idx_course_version_number" json:"version"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Chapters []Chapter `gorm:"foreignKey:CourseVersionID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

func (v *CourseVersion) IsPublished() bool { return v.PublishedAt != nil }

// Chapter maps 'chapters'. OriginalChapterID is a weak link to the matching
// chapter of an earlier version; deleting that chapter nulls the link.
type Chapter struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseVersionID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chapter_version_position" json:"courseVersionId"`
	Title             string     `gorm:"not null" json:"title"`
	Order             int        `gorm:"column:position;not null;uniqueIndex:idx_chapter_version_position" json:"order"`
	OriginalChapterID *uuid.UUID `gorm:"type:uuid;index" json:"originalChapterId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	OriginalChapter *Chapter `gorm:"foreignKey:OriginalChapterID;constraint:OnDelete:SET NULL" json:"-"`
}

// PromoCode maps 'promo_codes'. MaxUses == 0 means unlimited.
type PromoCode struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string          `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  DiscountType    `gorm:"type:varchar(20);not null" json:"discountType"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discountValue"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	MaxUses       int             `json:"maxUses,omitempty"`
	CurrentUses   int             `gorm:"not null" json:"currentUses"`
}

func (p *PromoCode) Usable(now time.Time) bool {
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	return p.MaxUses == 0 || p.CurrentUses < p.MaxUses
}

// Apply returns price after the discount, never below zero.
func (p *PromoCode) Apply(price decimal.Decimal) decimal.Decimal {
	var out decimal.Decimal
	switch p.DiscountType {
	case DiscountPercentage:
		pct := decimal.Min(p.DiscountValue, decimal.NewFromInt(100))
		out = price.Sub(price.Mul(pct).Div(decimal.NewFromInt(100)))
	case DiscountFixed:
		out = price.Sub(p.DiscountValue)
	default:
		out = price
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out.Round(2)
}

func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m *Course) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
func (m *CourseVersion) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
func (m *Chapter) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
func (m *PromoCode) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Code = NormalizePromoCode(m.Code)
	return
}
