// Package app wires configuration, storage, cache, messaging and services
// together for the server and the maintenance CLI.
package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/wtppaul/course-catalog/internal/config"
	"github.com/wtppaul/course-catalog/internal/database"
	"github.com/wtppaul/course-catalog/internal/events"
	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/redis"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/service"
)

const accessCacheTTL = 10 * time.Minute

type App struct {
	Config config.Config
	Log    *logger.Logger
	DB     *gorm.DB
	Store  *repository.Store

	Courses   *service.CourseService
	Versions  *service.VersionService
	Chapters  *service.ChapterService
	Purchases *service.PurchaseService
	Access    *service.AccessService
	Settings  *service.SettingsService
	Jobs      *jobs.Runner

	redis     *goredis.Client
	publisher *events.AMQPPublisher
}

// New builds the application on an open database. Redis and RabbitMQ are
// used only when configured.
func New(ctx context.Context, cfg config.Config, db *gorm.DB, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, DB: db, Store: repository.NewStore(db)}

	var (
		cache  service.AccessCache
		locker jobs.Locker
		pub    events.Publisher = events.Noop{}
	)
	rdb, err := redis.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.redis = rdb
		cache = redis.NewAccessCache(rdb, accessCacheTTL)
		locker = redis.NewJobLock(rdb, log)
		log.Infof("redis connected at %s", cfg.RedisAddr())
	}
	if cfg.RabbitMQURL != "" {
		a.publisher = events.NewAMQPPublisher(cfg.RabbitMQURL, log)
		pub = a.publisher
	}

	a.Courses = service.NewCourseService(a.Store)
	a.Versions = service.NewVersionService(a.Store, pub, log, cfg.ActivationRetries)
	a.Chapters = service.NewChapterService(a.Store)
	a.Access = service.NewAccessService(a.Store, cache, log)
	a.Purchases = service.NewPurchaseService(a.Store, a.Access, pub, log)
	a.Settings = service.NewSettingsService(a.Store)
	a.Jobs = jobs.NewRunner(a.Store, locker, log, jobs.GrantHook(a.Access.Invalidate))
	return a, nil
}

// Open loads the postgres database from cfg and builds the application.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, db, log)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	return a, nil
}

// Ping checks the database and, when configured, Redis.
func (a *App) Ping(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Log.Errorf(err, "close rabbitmq")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	closeDB(a.DB)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
