package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

type SettingsService struct {
	store *repository.Store
}

func NewSettingsService(store *repository.Store) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	return s.store.Settings.GetSettings(ctx)
}

func (s *SettingsService) UpdateSettings(ctx context.Context, in models.SiteSettings) (*models.SiteSettings, error) {
	in.SiteName = strings.TrimSpace(in.SiteName)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.SiteName == "" {
		return nil, invalid("siteName is required")
	}
	if len(in.Currency) != 3 {
		return nil, invalid("currency must be a 3-letter code")
	}
	if in.SupportEmail != "" {
		if _, err := mail.ParseAddress(in.SupportEmail); err != nil {
			return nil, invalid("supportEmail is not a valid address")
		}
	}
	if err := s.store.Settings.UpdateSettings(ctx, &in); err != nil {
		return nil, err
	}
	return s.store.Settings.GetSettings(ctx)
}
