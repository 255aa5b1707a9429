// Command coursectl runs the catalog maintenance jobs against the
// configured database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wtppaul/course-catalog/internal/app"
	"github.com/wtppaul/course-catalog/internal/config"
	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], openRunner)
	stop()
	os.Exit(code)
}

// openRunner connects with the environment configuration. Logs go to
// stderr so stdout carries only the summary.
func openRunner(ctx context.Context, configPath string) (*jobs.Runner, Defaults, func(), error) {
	log := logger.NewWithWriter(os.Stderr, "[coursectl] ")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, Defaults{}, nil, err
	}
	log.EnableRollbar(cfg.RollbarToken, cfg.Env, cfg.Build)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Close()
		return nil, Defaults{}, nil, err
	}
	defaults := Defaults{TieBreak: cfg.JobsTieBreak, BatchSize: cfg.JobsBatchSize}
	return a.Jobs, defaults, func() {
		a.Close()
		log.Close()
	}, nil
}
