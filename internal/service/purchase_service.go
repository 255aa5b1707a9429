package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wtppaul/course-catalog/internal/events"
	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

type CreatePurchaseInput struct {
	UserID          uuid.UUID
	CourseID        uuid.UUID
	CourseVersionID *uuid.UUID
	PromoCode       string
}

type PurchaseService struct {
	store  *repository.Store
	access *AccessService
	pub    events.Publisher
	log    *logger.Logger
	now    func() time.Time
}

func NewPurchaseService(store *repository.Store, access *AccessService, pub events.Publisher, log *logger.Logger) *PurchaseService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &PurchaseService{store: store, access: access, pub: pub, log: log, now: time.Now}
}

// CreatePurchase records a PENDING purchase. Without an explicit version it
// targets the course's active version at this moment, if any.
func (s *PurchaseService) CreatePurchase(ctx context.Context, in CreatePurchaseInput) (*models.Purchase, error) {
	if in.UserID == uuid.Nil {
		return nil, invalid("userId is required")
	}
	course, err := s.store.Courses.GetCourseByID(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status == models.StatusArchived {
		return nil, invalid("course %s is archived", course.ID)
	}

	purchase := &models.Purchase{
		UserID:   in.UserID,
		CourseID: course.ID,
		Amount:   course.Price,
		Status:   models.PurchasePending,
	}

	if in.CourseVersionID != nil {
		version, err := s.store.Versions.GetVersionByID(ctx, *in.CourseVersionID)
		if err != nil {
			return nil, err
		}
		if version.CourseID != course.ID {
			return nil, invalid("version %s does not belong to course %s", version.ID, course.ID)
		}
		purchase.CourseVersionID = &version.ID
	} else {
		active, err := s.store.Versions.GetActiveVersion(ctx, course.ID)
		switch {
		case err == nil:
			purchase.CourseVersionID = &active.ID
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	if code := strings.TrimSpace(in.PromoCode); code != "" {
		promo, err := s.store.Purchases.GetPromoCodeByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("unknown promo code %q", code)
		}
		if err != nil {
			return nil, err
		}
		if !promo.Usable(s.now()) {
			return nil, invalid("promo code %q is expired or used up", code)
		}
		purchase.PromoCodeID = &promo.ID
		purchase.Amount = promo.Apply(course.Price)
	}

	if err := s.store.Purchases.CreatePurchase(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return s.store.Purchases.GetPurchaseByID(ctx, id)
}

// CompletePurchase marks the purchase COMPLETED and, for version purchases,
// grants access in the same transaction. A revoked grant for the same
// (user, version) is reactivated.
func (s *PurchaseService) CompletePurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, *models.UserVersionAccess, error) {
	var (
		purchase *models.Purchase
		grant    *models.UserVersionAccess
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		// 1. Lock and move PENDING -> COMPLETED
		p, err := tx.Purchases.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Purchases.UpdatePurchaseStatus(ctx, id, p.Status, models.PurchaseCompleted); err != nil {
			return errors.Wrapf(err, "purchase %s is %s", id, p.Status)
		}
		p.Status = models.PurchaseCompleted

		// 2. Count the promo use
		if p.PromoCodeID != nil {
			if err := tx.Purchases.IncrementPromoUsage(ctx, *p.PromoCodeID); err != nil {
				return errors.Wrap(err, "promo code is used up")
			}
		}

		// 3. Grant access to the purchased version
		if p.CourseVersionID != nil {
			err := tx.Access.UpsertGrant(ctx, &models.UserVersionAccess{
				UserID:          p.UserID,
				CourseVersionID: *p.CourseVersionID,
				PurchaseID:      &p.ID,
				GrantedAt:       s.now(),
				IsActive:        true,
			})
			if err != nil {
				return err
			}
			if grant, err = tx.Access.GetAccess(ctx, p.UserID, *p.CourseVersionID); err != nil {
				return err
			}
		}
		purchase = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if grant != nil {
		s.access.Invalidate(ctx, grant.UserID, grant.CourseVersionID)
		events.Emit(ctx, s.pub, s.log, events.KeyAccessGranted, events.AccessGranted{
			UserID:          grant.UserID,
			CourseVersionID: grant.CourseVersionID,
			PurchaseID:      grant.PurchaseID,
			GrantedAt:       grant.GrantedAt,
		})
	}
	return purchase, grant, nil
}

func (s *PurchaseService) FailPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase *models.Purchase
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		p, err := tx.Purchases.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Purchases.UpdatePurchaseStatus(ctx, id, p.Status, models.PurchaseFailed); err != nil {
			return errors.Wrapf(err, "purchase %s is %s", id, p.Status)
		}
		p.Status = models.PurchaseFailed
		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// RefundPurchase marks a COMPLETED purchase REFUNDED and revokes the grants
// it created. Revoked rows stay in place.
func (s *PurchaseService) RefundPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, []*models.UserVersionAccess, error) {
	var (
		purchase *models.Purchase
		revoked  []*models.UserVersionAccess
	)
	now := s.now()
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		p, err := tx.Purchases.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Purchases.UpdatePurchaseStatus(ctx, id, p.Status, models.PurchaseRefunded); err != nil {
			return errors.Wrapf(err, "purchase %s is %s", id, p.Status)
		}
		p.Status = models.PurchaseRefunded
		if revoked, err = tx.Access.RevokeByPurchase(ctx, id, now); err != nil {
			return err
		}
		purchase = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, g := range revoked {
		s.access.Invalidate(ctx, g.UserID, g.CourseVersionID)
		events.Emit(ctx, s.pub, s.log, events.KeyAccessRevoked, events.AccessRevoked{
			UserID:          g.UserID,
			CourseVersionID: g.CourseVersionID,
			PurchaseID:      g.PurchaseID,
			RevokedAt:       now,
		})
	}
	return purchase, revoked, nil
}

// CreatePromoCode registers a discount code.
func (s *PurchaseService) CreatePromoCode(ctx context.Context, promo *models.PromoCode) error {
	promo.Code = models.NormalizePromoCode(promo.Code)
	if promo.Code == "" {
		return invalid("code is required")
	}
	if promo.DiscountType != models.DiscountPercentage && promo.DiscountType != models.DiscountFixed {
		return invalid("unknown discount type %q", promo.DiscountType)
	}
	if !promo.DiscountValue.IsPositive() {
		return invalid("discount value must be positive")
	}
	if promo.MaxUses < 0 {
		return invalid("maxUses must not be negative")
	}
	promo.CurrentUses = 0
	return s.store.Purchases.CreatePromoCode(ctx, promo)
}
