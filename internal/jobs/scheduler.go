package jobs

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/wtppaul/course-catalog/internal/logger"
)

// Scheduler runs both jobs on a cron schedule inside the server.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *logger.Logger

	link    LinkOptions
	migrate MigrateOptions

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec (standard five-field cron syntax, or
// descriptors such as "@daily").
func NewScheduler(spec string, runner *Runner, link LinkOptions, migrate MigrateOptions, log *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		log:     log,
		link:    link,
		migrate: migrate,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling. Cancelling ctx interrupts a run in progress.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
}

// Stop halts scheduling, interrupts a running job and waits for it.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

// RunOnce executes the migrator and then the linker.
func (s *Scheduler) RunOnce() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if report, err := s.runner.MigrateAccess(ctx, s.migrate); err != nil {
		s.log.Errorf(err, "scheduled migrate-access")
	} else {
		s.log.Infof("scheduled migrate-access: %s", report.Summary())
	}
	if report, err := s.runner.LinkChapters(ctx, s.link); err != nil {
		s.log.Errorf(err, "scheduled link-chapters")
	} else {
		s.log.Infof("scheduled link-chapters: %s", report.Summary())
	}
}
