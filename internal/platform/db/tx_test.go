package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type fakeTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
	opts     pgx.TxOptions
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.Equal(t, pgx.RepeatableRead, b.opts.IsoLevel)
}

func TestWithTxMapsStoreFailures(t *testing.T) {
	cases := map[string]error{
		"serialization":     &pgconn.PgError{Code: "40001"},
		"deadlock":          &pgconn.PgError{Code: "40P01"},
		"lock timeout":      &pgconn.PgError{Code: "55P03"},
		"statement timeout": &pgconn.PgError{Code: "57014"},
		"connection lost":   &pgconn.PgError{Code: "08006"},
		"request deadline":  context.DeadlineExceeded,
		"request canceled":  context.Canceled,
		"check violation":   &pgconn.PgError{Code: "23514"},
		"scan failure":      errors.New("can't scan into dest[3]"),
	}
	for name, cause := range cases {
		t.Run(name, func(t *testing.T) {
			b := &fakeBeginner{tx: &fakeTx{}}
			err := WithTx(context.Background(), b, func(pgx.Tx) error { return cause })
			require.Error(t, err)

			var txErr *shared.TransactionError
			require.ErrorAs(t, err, &txErr)
			assert.ErrorIs(t, err, shared.ErrTransaction)
			assert.ErrorIs(t, err, cause)
			assert.True(t, b.tx.rolledBack)
			assert.False(t, b.tx.committed)
		})
	}
}

func TestWithTxPassesDomainErrors(t *testing.T) {
	cases := []error{
		&shared.InsufficientStockError{ProductID: "p1", Available: 1, Requested: 2},
		&shared.ProductNotFoundError{ProductID: "p1"},
		shared.NewValidationError("quantity", "is required"),
		&shared.DuplicateKeyError{Field: "barcode", Value: "871"},
		&shared.TransactionError{Op: "sales: sale number taken"},
	}
	for _, cause := range cases {
		b := &fakeBeginner{tx: &fakeTx{}}
		err := WithTx(context.Background(), b, func(pgx.Tx) error { return cause })
		assert.Same(t, cause, err)
		assert.True(t, b.tx.rolledBack)
	}
}

func TestWithTxBeginAndCommitFailures(t *testing.T) {
	b := &fakeBeginner{beginErr: &pgconn.PgError{Code: "08001"}}
	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		t.Fatal("callback must not run without a transaction")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrTransaction)

	b = &fakeBeginner{tx: &fakeTx{commitErr: &pgconn.PgError{Code: "40001"}}}
	err = WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	assert.ErrorIs(t, err, shared.ErrTransaction)
	assert.True(t, b.tx.rolledBack)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "08003"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "57014"}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestUniqueViolation(t *testing.T) {
	name, ok := UniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "products_barcode_key"})
	assert.True(t, ok)
	assert.Equal(t, "products_barcode_key", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	assert.True(t, IsNoRows(pgx.ErrNoRows))
}
