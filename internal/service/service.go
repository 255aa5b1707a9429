// Package service implements the catalog's use cases on top of the
// repository store. Every multi-row change runs in one transaction; events
// and cache invalidation happen only after commit.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/wtppaul/course-catalog/internal/repository"
)

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(repository.ErrInvalidInput, format, args...)
}

// retry runs fn up to attempts times while it fails with a retryable error.
func retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !repository.IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}
	return errors.Wrapf(err, "gave up after %d attempts", attempts)
}
