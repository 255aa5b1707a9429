package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/logger"
)

const jobLockPrefix = "jobs:lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only while the lock still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// JobLock is a SET NX lock shared by every process using the same Redis.
// While held, the TTL is refreshed every third of its length, so a run only
// loses the lock if this process stops refreshing it.
type JobLock struct {
	client *redis.Client
	log    *logger.Logger
}

func NewJobLock(client *redis.Client, log *logger.Logger) *JobLock {
	return &JobLock{client: client, log: log}
}

func (l *JobLock) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), error) {
	key := jobLockPrefix + job
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, jobs.ErrJobRunning
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, ttl, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
				l.log.Errorf(err, "release job lock %s", key)
			}
		})
	}, nil
}

func (l *JobLock) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := extendScript.Run(context.Background(), l.client, []string{key}, token, ttl.Milliseconds()).Int()
			if err != nil {
				l.log.Errorf(err, "extend job lock %s", key)
				continue
			}
			if n == 0 {
				l.log.Warnf("job lock %s lost before the run finished", key)
				return
			}
		}
	}
}
