package numbering_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"numera/internal/core/id"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/storage/postgres"
)

const counterTable = "sequence_counters"

// CounterRepo implements numbering.CounterRepository.
//
// The table carries UNIQUE NULLS NOT DISTINCT
// (tenant_id, document_type, period, prefix1, prefix2) so that an absent
// prefix (NULL) and a present-but-empty prefix ('') are distinct counters
// while the upsert conflict target still matches NULL keys.
type CounterRepo struct {
	txManager *postgres.TxManager
}

// NewCounterRepo creates the counter repository.
func NewCounterRepo(txManager *postgres.TxManager) *CounterRepo {
	return &CounterRepo{txManager: txManager}
}

var _ numbering.CounterRepository = (*CounterRepo)(nil)

// incrementSQL is the whole concurrency story: one statement either
// creates the counter row at 1 or bumps the existing one, and returns the
// post-increment value. Two racing callers serialize on the row lock and
// observe distinct values; there is no read-modify-write window.
const incrementSQL = `
	INSERT INTO sequence_counters (
		id, tenant_id, document_type, period, prefix1, prefix2,
		current_value, last_used_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
	ON CONFLICT (tenant_id, document_type, period, prefix1, prefix2)
	DO UPDATE SET
		current_value = sequence_counters.current_value + 1,
		last_used_at  = now()
	RETURNING id, current_value
`

func (r *CounterRepo) IncrementOrCreate(ctx context.Context, key numbering.CounterKey) (*numbering.CounterAdvance, error) {
	adv := &numbering.CounterAdvance{}

	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, incrementSQL,
		id.New(), key.TenantID, key.DocumentType, key.Period,
		key.Prefix1.Ptr(), key.Prefix2.Ptr(),
	).Scan(&adv.CounterID, &adv.Value)
	if err != nil {
		return nil, fmt.Errorf("increment counter %s: %w", key, postgres.ClassifyError(err))
	}
	return adv, nil
}

func (r *CounterRepo) Current(ctx context.Context, key numbering.CounterKey) (int64, error) {
	q := builder().
		Select("current_value").
		From(counterTable).
		Where(squirrel.Eq{
			"tenant_id":     key.TenantID,
			"document_type": key.DocumentType,
			"period":        key.Period,
			"prefix1":       key.Prefix1.Ptr(),
			"prefix2":       key.Prefix2.Ptr(),
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var current int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read counter %s: %w", key, postgres.ClassifyError(err))
	}
	return current, nil
}

func (r *CounterRepo) RecordLastNumber(ctx context.Context, counterID id.ID, number string) error {
	sql, args, err := builder().
		Update(counterTable).
		Set("last_number", number).
		Where(squirrel.Eq{"id": counterID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("record last number: %w", postgres.ClassifyError(err))
	}
	return nil
}
