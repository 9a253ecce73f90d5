package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numera/internal/core/apperror"
)

// fakeQuerier scripts the two statements AcquireKey issues: the upsert
// (QueryRow) and the reclaim update (Exec).
type fakeQuerier struct {
	row pgx.Row

	execTag  pgconn.CommandTag
	execErr  error
	execSQL  string
	execArgs []any
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = sql
	q.execArgs = args
	return q.execTag, q.execErr
}

func (q *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (q *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return q.row
}

type fakeQuerierSource struct{ q Querier }

func (s fakeQuerierSource) GetQuerier(context.Context) Querier { return s.q }

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// acquireRow yields the row the upsert RETURNING clause produces.
func acquireRow(rec IdempotencyRecord, inserted bool) pgx.Row {
	return scanFunc(func(dest ...any) error {
		*dest[0].(*string) = rec.Key
		*dest[1].(*string) = rec.TenantID
		*dest[2].(*string) = rec.UserID
		*dest[3].(*string) = rec.Operation
		*dest[4].(*IdempotencyStatus) = rec.Status
		*dest[5].(*string) = rec.RequestHash
		*dest[6].(*[]byte) = rec.Response
		*dest[7].(*int) = rec.StatusCode
		*dest[8].(*string) = rec.ContentType
		*dest[9].(*time.Time) = rec.CreatedAt
		*dest[10].(*time.Time) = rec.UpdatedAt
		*dest[11].(*time.Time) = rec.ExpiresAt
		*dest[12].(*bool) = inserted
		return nil
	})
}

func testIdempotencyStore(q Querier) *IdempotencyStore {
	return &IdempotencyStore{txManager: fakeQuerierSource{q}, ttl: time.Hour}
}

func pendingRecord(age time.Duration) IdempotencyRecord {
	now := time.Now().UTC()
	return IdempotencyRecord{
		Key:         "key-1",
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Operation:   "numbering.generate",
		Status:      IdempotencyStatusPending,
		RequestHash: "hash-1",
		CreatedAt:   now.Add(-age),
		UpdatedAt:   now.Add(-age),
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestIdempotencyStore_AcquireKey_FreshKey(t *testing.T) {
	rec := pendingRecord(0)
	q := &fakeQuerier{row: acquireRow(rec, true)}
	store := testIdempotencyStore(q)

	replay, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "hash-1")
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestIdempotencyStore_AcquireKey_ConcurrentDuplicate(t *testing.T) {
	// The row already exists and is pending with a fresh updated_at. Even
	// when both requests arrive within the same second, only the one that
	// actually inserted may proceed; the other must get a conflict, not a
	// second number.
	rec := pendingRecord(0)
	q := &fakeQuerier{row: acquireRow(rec, false)}
	store := testIdempotencyStore(q)

	replay, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "hash-1")
	require.Error(t, err)
	assert.Nil(t, replay)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIdempotency, appErr.Code)
	assert.Empty(t, q.execSQL, "a losing duplicate must not issue a reclaim update")
}

func TestIdempotencyStore_AcquireKey_ReplaysCompleted(t *testing.T) {
	rec := pendingRecord(10 * time.Second)
	rec.Status = IdempotencyStatusSuccess
	rec.StatusCode = 201
	rec.ContentType = "application/json"
	rec.Response = []byte(`{"number":"PO-0125-0001"}`)
	q := &fakeQuerier{row: acquireRow(rec, false)}
	store := testIdempotencyStore(q)

	replay, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "hash-1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.Equal(t, rec.Response, replay.Body)
}

func TestIdempotencyStore_AcquireKey_RequestMismatch(t *testing.T) {
	rec := pendingRecord(10 * time.Second)
	q := &fakeQuerier{row: acquireRow(rec, false)}
	store := testIdempotencyStore(q)

	_, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "other-hash")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIdempotency, appErr.Code)
}

func TestIdempotencyStore_AcquireKey_StaleReclaim(t *testing.T) {
	t.Run("wins the reclaim", func(t *testing.T) {
		rec := pendingRecord(2 * time.Minute)
		q := &fakeQuerier{row: acquireRow(rec, false), execTag: pgconn.NewCommandTag("UPDATE 1")}
		store := testIdempotencyStore(q)

		replay, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "hash-1")
		require.NoError(t, err)
		assert.Nil(t, replay)

		// The reclaim must be conditional on the updated_at value observed
		// in the upsert, so a second reclaimer matches zero rows.
		require.NotEmpty(t, q.execSQL)
		assert.Contains(t, q.execSQL, "updated_at = $5")
		assert.Contains(t, q.execArgs, rec.UpdatedAt)
	})

	t.Run("loses the reclaim", func(t *testing.T) {
		rec := pendingRecord(2 * time.Minute)
		q := &fakeQuerier{row: acquireRow(rec, false), execTag: pgconn.NewCommandTag("UPDATE 0")}
		store := testIdempotencyStore(q)

		replay, err := store.AcquireKey(t.Context(), "key-1", "tenant-1", "user-1", "numbering.generate", "hash-1")
		require.Error(t, err)
		assert.Nil(t, replay)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeIdempotency, appErr.Code)
	})
}
