package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Beginner is satisfied by *pgxpool.Pool and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var _ Beginner = (*pgxpool.Pool)(nil)

// WithTx executes fn within a RepeatableRead transaction. The transaction is
// rolled back whenever fn returns an error or panics and committed otherwise.
// Errors from the shop's taxonomy pass through unchanged; every store failure
// (begin, statement, cancellation, commit) comes back as
// *shared.TransactionError, so the unit of work either committed or can be
// retried.
func WithTx(ctx context.Context, pool Beginner, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return &shared.TransactionError{Op: "platform/db: begin tx", Err: err}
	}

	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return &shared.TransactionError{Op: "platform/db: commit tx", Err: err}
	}

	return nil
}

func mapTxError(err error) error {
	if isDomainError(err) {
		return err
	}
	if IsRetryable(err) {
		return &shared.TransactionError{Op: "platform/db: tx aborted", Err: err}
	}
	return &shared.TransactionError{Op: "platform/db: tx failed", Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		shared.ErrTransaction,
		shared.ErrNotFound,
		shared.ErrValidation,
		shared.ErrDuplicate,
		shared.ErrInsufficientStock,
		shared.ErrMissingIMEI,
		shared.ErrInvalidCredentials,
		shared.ErrIdempotencyConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports failures after which the same unit of work may succeed:
// serialization failures, deadlocks, lock and statement timeouts, lost
// connections, and request cancellation.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return pgconn.SafeToRetry(err)
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03", "57014", "57P01":
		return true
	}
	return strings.HasPrefix(pgErr.Code, "08")
}

// UniqueViolation returns the violated constraint name for SQLSTATE 23505.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsNoRows reports pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
