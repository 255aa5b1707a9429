package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

// AccessCache memoizes access decisions per (user, version).
type AccessCache interface {
	Get(ctx context.Context, userID, versionID uuid.UUID) (allowed, hit bool, err error)
	Set(ctx context.Context, userID, versionID uuid.UUID, allowed bool) error
	Invalidate(ctx context.Context, userID, versionID uuid.UUID) error
}

type AccessService struct {
	store *repository.Store
	cache AccessCache
	log   *logger.Logger
}

// NewAccessService builds the service; cache may be nil. Cache failures are
// logged and fall through to the database.
func NewAccessService(store *repository.Store, cache AccessCache, log *logger.Logger) *AccessService {
	return &AccessService{store: store, cache: cache, log: log}
}

func (s *AccessService) HasAccess(ctx context.Context, userID, versionID uuid.UUID) (bool, error) {
	if s.cache != nil {
		allowed, hit, err := s.cache.Get(ctx, userID, versionID)
		if err != nil {
			s.log.Errorf(err, "access cache get")
		} else if hit {
			return allowed, nil
		}
	}

	allowed, err := s.store.Access.HasActiveAccess(ctx, userID, versionID)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, versionID, allowed); err != nil {
			s.log.Errorf(err, "access cache set")
		}
	}
	return allowed, nil
}

func (s *AccessService) ListUserAccess(ctx context.Context, userID uuid.UUID) ([]*models.UserVersionAccess, error) {
	return s.store.Access.ListByUser(ctx, userID)
}

// Invalidate drops the cached decision for one grant.
func (s *AccessService) Invalidate(ctx context.Context, userID, versionID uuid.UUID) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, versionID); err != nil {
		s.log.Errorf(err, "access cache invalidate")
	}
}
