package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/events"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/testutil"
)

type memoryCache struct {
	mu          sync.Mutex
	values      map[string]bool
	invalidated int
}

func newMemoryCache() *memoryCache { return &memoryCache{values: map[string]bool{}} }

func (c *memoryCache) key(u, v uuid.UUID) string { return u.String() + v.String() }

func (c *memoryCache) Get(_ context.Context, u, v uuid.UUID) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	allowed, ok := c.values[c.key(u, v)]
	return allowed, ok, nil
}

func (c *memoryCache) Set(_ context.Context, u, v uuid.UUID, allowed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[c.key(u, v)] = allowed
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, u, v uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, c.key(u, v))
	c.invalidated++
	return nil
}

type purchaseFixture struct {
	db        *gorm.DB
	store     *repository.Store
	cache     *memoryCache
	events    *events.Recorder
	access    *AccessService
	purchases *PurchaseService
	versions  *VersionService
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	f := &purchaseFixture{db: db, store: store, cache: newMemoryCache(), events: &events.Recorder{}}
	f.access = NewAccessService(store, f.cache, nil)
	f.purchases = NewPurchaseService(store, f.access, f.events, nil)
	f.versions = NewVersionService(store, nil, nil, 3)
	return f
}

func TestCreatePurchaseSnapshotsActiveVersion(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	ctx := context.Background()

	p, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID})
	require.NoError(t, err)
	assert.Nil(t, p.CourseVersionID)
	assert.Equal(t, models.PurchasePending, p.Status)

	v1 := testutil.CreateVersion(t, f.db, course.ID, 1, true)
	_, err = f.versions.ActivateVersion(ctx, v1.ID)
	require.NoError(t, err)

	p, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID})
	require.NoError(t, err)
	require.NotNil(t, p.CourseVersionID)
	assert.Equal(t, v1.ID, *p.CourseVersionID)
	assert.True(t, p.Amount.Equal(course.Price))
}

func TestCreatePurchaseValidation(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	other := testutil.CreateCourse(t, f.db, "Rust")
	foreign := testutil.CreateVersion(t, f.db, other.ID, 1, true)
	ctx := context.Background()

	_, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, CourseVersionID: &foreign.ID})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, PromoCode: "nope"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	require.NoError(t, f.store.Courses.UpdateCourseStatus(ctx, course.ID, models.StatusArchived))
	_, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestPromoCodeDiscountAndUsage(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	ctx := context.Background()
	promo := &models.PromoCode{Code: "half", DiscountType: models.DiscountPercentage, DiscountValue: decimal.NewFromInt(50), MaxUses: 1}
	require.NoError(t, f.purchases.CreatePromoCode(ctx, promo))

	p1, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, PromoCode: "HALF"})
	require.NoError(t, err)
	assert.True(t, p1.Amount.Equal(decimal.NewFromInt(50)), p1.Amount.String())
	p2, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, PromoCode: "half"})
	require.NoError(t, err)

	_, _, err = f.purchases.CompletePurchase(ctx, p1.ID)
	require.NoError(t, err)

	_, _, err = f.purchases.CompletePurchase(ctx, p2.ID)
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)
	still, err := f.purchases.GetPurchase(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, still.Status)

	_, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, PromoCode: "half"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, f.purchases.CreatePromoCode(ctx, &models.PromoCode{
		Code: "old", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(5), ExpiresAt: &expired,
	}))
	_, err = f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, PromoCode: "old"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestCompleteGrantsAccessAtomically(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	v1 := testutil.CreateVersion(t, f.db, course.ID, 1, true)
	user := uuid.New()
	ctx := context.Background()

	allowed, err := f.access.HasAccess(ctx, user, v1.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	p, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: user, CourseID: course.ID, CourseVersionID: &v1.ID})
	require.NoError(t, err)

	completed, grant, err := f.purchases.CompletePurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCompleted, completed.Status)
	require.NotNil(t, grant)
	assert.Equal(t, p.ID, *grant.PurchaseID)
	assert.True(t, grant.IsActive)

	allowed, err = f.access.HasAccess(ctx, user, v1.ID)
	require.NoError(t, err)
	assert.True(t, allowed, "cached denial must be invalidated")
	assert.Equal(t, []string{events.KeyAccessGranted}, f.events.Keys())

	_, _, err = f.purchases.CompletePurchase(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestCompleteRollsBackWhenGrantFails(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	v1 := testutil.CreateVersion(t, f.db, course.ID, 1, true)
	ctx := context.Background()
	p, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID, CourseVersionID: &v1.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(`CREATE TRIGGER reject_grant BEFORE INSERT ON user_version_access
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error)

	_, _, err = f.purchases.CompletePurchase(ctx, p.ID)
	require.Error(t, err)

	still, err := f.purchases.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, still.Status)
	assert.Empty(t, f.events.Keys())
}

func TestRefundRevokesButKeepsAccessRow(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	v1 := testutil.CreateVersion(t, f.db, course.ID, 1, true)
	user := uuid.New()
	ctx := context.Background()

	p, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: user, CourseID: course.ID, CourseVersionID: &v1.ID})
	require.NoError(t, err)
	_, _, err = f.purchases.CompletePurchase(ctx, p.ID)
	require.NoError(t, err)
	allowed, err := f.access.HasAccess(ctx, user, v1.ID)
	require.NoError(t, err)
	require.True(t, allowed)

	refunded, revoked, err := f.purchases.RefundPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseRefunded, refunded.Status)
	require.Len(t, revoked, 1)

	allowed, err = f.access.HasAccess(ctx, user, v1.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	grants, err := f.access.ListUserAccess(ctx, user)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.False(t, grants[0].IsActive)
	assert.NotNil(t, grants[0].RevokedAt)
	assert.Equal(t, []string{events.KeyAccessGranted, events.KeyAccessRevoked}, f.events.Keys())

	// A new purchase of the same version reactivates the row.
	p2, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: user, CourseID: course.ID, CourseVersionID: &v1.ID})
	require.NoError(t, err)
	_, grant, err := f.purchases.CompletePurchase(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, grants[0].ID, grant.ID)
	assert.True(t, grant.IsActive)
	assert.Nil(t, grant.RevokedAt)
}

func TestInvalidPurchaseTransitions(t *testing.T) {
	f := newPurchaseFixture(t)
	course := testutil.CreateCourse(t, f.db, "Go")
	ctx := context.Background()

	p, err := f.purchases.CreatePurchase(ctx, CreatePurchaseInput{UserID: uuid.New(), CourseID: course.ID})
	require.NoError(t, err)

	_, _, err = f.purchases.RefundPurchase(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	failed, err := f.purchases.FailPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseFailed, failed.Status)

	_, _, err = f.purchases.CompletePurchase(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	_, err = f.purchases.FailPurchase(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, _, err = f.purchases.CompletePurchase(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
