package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func TestAuditLoggerFillsActorFromSession(t *testing.T) {
	db := &fakeExecer{}
	logger := NewAuditLogger(db)

	sess := &Session{}
	sess.GrantAdmin()
	ctx := ContextWithSession(context.Background(), sess)

	require.NoError(t, logger.Record(ctx, AuditLog{Action: "sale:create", Entity: "sale", EntityID: "SALE-20240301-0001"}))
	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	assert.Equal(t, "admin", args[0])
	assert.Equal(t, "sale:create", args[1])
	assert.Nil(t, args[4])
	assert.Nil(t, args[5])
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	db := &fakeExecer{}
	assert.Error(t, NewAuditLogger(db).Record(context.Background(), AuditLog{Action: "x"}))
	assert.Empty(t, db.calls)

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}

func TestIdempotencyReserveConflict(t *testing.T) {
	db := &fakeExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(db)
	assert.ErrorIs(t, store.Reserve(context.Background(), "sales", "abc"), ErrIdempotencyConflict)

	db.err = errors.New("connection reset")
	err := store.Reserve(context.Background(), "sales", "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdempotencyConflict)

	assert.Error(t, store.Reserve(context.Background(), "sales", ""))
}

func TestIdempotencyCleanupCutoff(t *testing.T) {
	db := &fakeExecer{}
	store := NewIdempotencyStore(db)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	require.NoError(t, store.Cleanup(context.Background(), 72*time.Hour))
	require.Len(t, db.calls, 1)
	assert.Equal(t, fixed.Add(-72*time.Hour), db.calls[0].args[0])
}
