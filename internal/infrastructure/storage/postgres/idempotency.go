package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"numera/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// idempotencyStaleAfter is how long a pending key may sit untouched before
// another caller is allowed to reclaim it.
const idempotencyStaleAfter = time.Minute

// IdempotencyRecord stores the result of an idempotent operation.
// Generate is the main consumer: retrying a failed HTTP call with the
// same key replays the stored response instead of burning a new number.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	TenantID    string            `db:"tenant_id"`
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"` // SHA256 of request body
	Response    []byte            `db:"response"`     // Cached response
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// querierSource yields the querier bound to the current context.
// Satisfied by TxManager.
type querierSource interface {
	GetQuerier(ctx context.Context) Querier
}

// IdempotencyStore manages idempotency keys.
type IdempotencyStore struct {
	txManager querierSource
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
	}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if key acquired successfully
//   - (cachedResponse, nil) if operation already completed (success or failed)
//   - (nil, error) if key is locked by another request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, tenantID, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	// Insert, or read back the existing row. xmax = 0 only on a freshly
	// inserted row, so it tells our insert apart from a concurrent holder's.
	// The conflict branch must not touch updated_at: that column records the
	// holder's last activity and drives stale-key reclaim below.
	var record IdempotencyRecord
	var inserted bool
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, tenant_id, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		ON CONFLICT (tenant_id, idempotency_key) DO UPDATE SET
			expires_at = GREATEST(idempotency_keys.expires_at, $8)
		RETURNING idempotency_key, tenant_id, user_id, operation, status, request_hash, response, response_status, response_content_type, created_at, updated_at, expires_at, (xmax = 0) AS inserted
	`, key, tenantID, userID, operation, IdempotencyStatusPending, requestHash, now, expiresAt).Scan(
		&record.Key, &record.TenantID, &record.UserID, &record.Operation, &record.Status,
		&record.RequestHash, &record.Response, &record.StatusCode, &record.ContentType,
		&record.CreatedAt, &record.UpdatedAt, &record.ExpiresAt, &inserted,
	)

	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", ClassifyError(err))
	}

	if inserted {
		return nil, nil
	}

	// Key exists: protect against reuse for a different request.
	if record.UserID != userID || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	// Key exists - check status
	switch record.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return &IdempotencyReplay{
			StatusCode:  normalizeReplayStatus(record.StatusCode),
			ContentType: normalizeReplayContentType(record.ContentType),
			Body:        record.Response,
		}, nil

	case IdempotencyStatusPending:
		// Pending older than a minute means the holder likely crashed.
		// Reclaim with a compare-and-swap on updated_at so only one of
		// several waiting callers takes over.
		if now.Sub(record.UpdatedAt) > idempotencyStaleAfter {
			result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
				UPDATE idempotency_keys
				SET updated_at = $1
				WHERE tenant_id = $2 AND idempotency_key = $3 AND status = $4 AND updated_at = $5
			`, now, tenantID, key, IdempotencyStatusPending, record.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("reclaim stale key: %w", ClassifyError(err))
			}
			if result.RowsAffected() == 0 {
				// Another caller reclaimed or completed the key first.
				return nil, apperror.NewIdempotencyConflict(key)
			}
			return nil, nil
		}
		// Key is actively being processed
		return nil, apperror.NewIdempotencyConflict(key)
	}

	return nil, nil
}

// CompleteKey marks an idempotency key as completed with HTTP response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, tenantID, key string, statusCode int, contentType string, response any) error {
	return s.finishKey(ctx, tenantID, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey marks an idempotency key as failed with HTTP response.
func (s *IdempotencyStore) FailKey(ctx context.Context, tenantID, key string, statusCode int, contentType string, response any) error {
	return s.finishKey(ctx, tenantID, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finishKey(ctx context.Context, tenantID, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var responseBytes []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			// Best-effort: fall back to a minimal error body to keep the key consistent.
			responseBytes, _ = json.Marshal(map[string]string{"error": err.Error()})
		} else {
			responseBytes = b
		}
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE tenant_id = $6 AND idempotency_key = $7
	`, status, responseBytes, statusCode, contentType, time.Now().UTC(), tenantID, key)

	return ClassifyError(err)
}

func normalizeReplayStatus(status int) int {
	// If older records exist without status, default to 200 for JSON bodies.
	if status == 0 {
		return 200
	}
	return status
}

func normalizeReplayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM idempotency_keys WHERE expires_at < $1
	`, time.Now().UTC())

	if err != nil {
		return 0, ClassifyError(err)
	}
	return result.RowsAffected(), nil
}
