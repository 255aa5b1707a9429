// Package repository holds the gorm-backed repositories and the error kinds
// shared by every layer above them. Handlers translate the kinds to HTTP
// status codes: ErrNotFound 404, ErrConstraintViolation 409,
// ErrInvalidTransition 422, ErrInvalidInput 400, everything else 500.
package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrPersistence         = errors.New("persistence failure")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrInvalidInput        = errors.New("invalid input")
)

// StoreError carries the failed operation, its kind and the driver error.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() []error { return []error{e.Kind, e.Err} }

// wrap classifies err. Errors that are already classified pass through.
func wrap(op string, err error) error {
	if err == nil || classified(err) {
		return err
	}
	kind := ErrPersistence
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		kind = ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		kind = ErrConstraintViolation
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func classified(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return true
	}
	for _, kind := range []error{ErrNotFound, ErrConstraintViolation, ErrPersistence, ErrInvalidTransition, ErrInvalidInput} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a transaction failed only because it lost a
// race: serialization failure, deadlock, or a unique-index collision.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
