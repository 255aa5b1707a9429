package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wtppaul/course-catalog/internal/app"
	"github.com/wtppaul/course-catalog/internal/config"
	"github.com/wtppaul/course-catalog/internal/handler"
	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/routes"
)

func main() {
	log := logger.New("[course-catalog] ")

	// 1. Config
	cfg, err := config.Load(".")
	if err != nil {
		log.Errorf(err, "load config")
		os.Exit(1)
	}
	log.EnableRollbar(cfg.RollbarToken, cfg.Env, cfg.Build)
	defer log.Close()

	tieBreak, err := jobs.ParseTieBreak(cfg.JobsTieBreak)
	if err != nil {
		log.Errorf(err, "JOBS_TIE_BREAK")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database, redis, rabbitmq, services
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Errorf(err, "startup")
		os.Exit(1)
	}
	defer a.Close()

	// 3. Gin
	if cfg.Env == "PROD" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies(nil)

	routes.SetupRoutes(router, routes.Handlers{
		Courses:   handler.NewCourseHandler(a.Courses, log),
		Versions:  handler.NewVersionHandler(a.Versions, log),
		Chapters:  handler.NewChapterHandler(a.Chapters, log),
		Purchases: handler.NewPurchaseHandler(a.Purchases, log),
		Access:    handler.NewAccessHandler(a.Access, a.Settings, log),
		Jobs:      handler.NewJobHandler(a.Jobs, tieBreak, log),
	}, cfg.InternalAPISecret, cfg.AllowedOrigins(), func(c *gin.Context) error {
		return a.Ping(c.Request.Context())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// 4. Optional maintenance schedule
	if cfg.JobsCron != "" {
		sched, err := jobs.NewScheduler(cfg.JobsCron, a.Jobs,
			jobs.LinkOptions{TieBreak: tieBreak},
			jobs.MigrateOptions{BatchSize: cfg.JobsBatchSize},
			log)
		if err != nil {
			log.Errorf(err, "JOBS_CRON %q", cfg.JobsCron)
			os.Exit(1)
		}
		sched.Start(gctx)
		log.Infof("maintenance jobs scheduled: %s", cfg.JobsCron)
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	// 5. Serve until a signal arrives
	g.Go(func() error {
		log.Infof("course-catalog running at http://localhost:%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorf(err, "server stopped")
		a.Close()
		log.Close()
		os.Exit(1)
	}
	log.Infof("shutdown complete")
}
