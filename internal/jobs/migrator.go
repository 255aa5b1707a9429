package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
)

const DefaultBatchSize = 500

type MigrateOptions struct {
	DryRun    bool
	BatchSize int
}

// GrantHook is told about every grant the migrator creates.
type GrantHook func(ctx context.Context, userID, versionID uuid.UUID)

// AccessMigrator backfills user_version_access from completed version
// purchases. Purchases whose (user, version) already has a row are skipped,
// so the job can run any number of times.
type AccessMigrator struct {
	store   *repository.Store
	log     *logger.Logger
	onGrant GrantHook
}

func NewAccessMigrator(store *repository.Store, log *logger.Logger, onGrant GrantHook) *AccessMigrator {
	return &AccessMigrator{store: store, log: log, onGrant: onGrant}
}

type grantKey struct {
	user, version uuid.UUID
}

func (m *AccessMigrator) Run(ctx context.Context, opts MigrateOptions) (*MigrationReport, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	report := &MigrationReport{DryRun: opts.DryRun}
	planned := map[grantKey]bool{}

	offset := 0
scan:
	for {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		page, err := m.store.Purchases.ListCompletedVersionPurchases(ctx, offset, opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
				break
			}
			return report, err
		}
		offset += len(page)

		for _, p := range page {
			if ctx.Err() != nil {
				report.Interrupted = true
				break scan
			}
			report.Scanned++
			m.migrate(ctx, p, opts.DryRun, planned, report)
		}
		if len(page) < opts.BatchSize {
			break
		}
	}

	m.log.Infof("migrate-access: %d scanned, %d created, %d skipped, %d failed",
		report.Scanned, report.Created, report.Skipped, len(report.Failures))
	return report, report.Err()
}

func (m *AccessMigrator) migrate(ctx context.Context, p *models.Purchase, dryRun bool, planned map[grantKey]bool, report *MigrationReport) {
	key := grantKey{user: p.UserID, version: *p.CourseVersionID}

	exists, err := m.store.Access.Exists(ctx, key.user, key.version)
	if err != nil {
		m.log.Errorf(err, "check access for purchase %s", p.ID)
		report.fail(p.ID, err)
		return
	}
	if exists || planned[key] {
		report.Skipped++
		return
	}
	if dryRun {
		planned[key] = true
		report.Created++
		return
	}

	created, err := m.store.Access.InsertIfAbsent(ctx, &models.UserVersionAccess{
		UserID:          key.user,
		CourseVersionID: key.version,
		PurchaseID:      &p.ID,
		GrantedAt:       p.CreatedAt,
		IsActive:        true,
	})
	if err != nil {
		m.log.Errorf(err, "grant access for purchase %s", p.ID)
		report.fail(p.ID, err)
		return
	}
	if !created {
		report.Skipped++
		return
	}
	report.Created++
	if m.onGrant != nil {
		m.onGrant(ctx, key.user, key.version)
	}
}
