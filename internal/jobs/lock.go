package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrJobRunning means another run of the same job holds the lock.
var ErrJobRunning = errors.New("job is already running")

// Locker grants exclusive runs per job name. release must be called once
// the run is over.
type Locker interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (release func(), err error)
}

// LocalLocker serializes jobs within one process.
type LocalLocker struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{running: map[string]bool{}}
}

func (l *LocalLocker) Acquire(_ context.Context, job string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running[job] {
		return nil, ErrJobRunning
	}
	l.running[job] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.running, job)
			l.mu.Unlock()
		})
	}, nil
}
